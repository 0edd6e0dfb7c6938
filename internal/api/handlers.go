package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"splashpark/internal/auth"
	"splashpark/internal/models"
	"splashpark/internal/service"
)

const dispatchTimeout = 10 * time.Second

type bookingResponse struct {
	Booking   *models.Booking `json:"booking"`
	Notices   []string        `json:"notices,omitempty"`
	RefundDue bool            `json:"refund_due,omitempty"`
}

func (s *HTTPServer) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code          string  `json:"code"`
		DurationHours float64 `json:"duration_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	writeJSON(w, http.StatusOK, s.svc.ValidateCoupon(body.Code, body.DurationHours))
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	zoneRef := strings.TrimSpace(r.PathValue("zone"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	zone, ok := s.resolveZone(zoneRef)
	if !ok {
		writeError(w, http.StatusNotFound, "zone not found")
		return
	}

	slots, err := s.svc.FreeSlots(r.Context(), zone.ID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zone_id":    zone.ID,
		"zone_name":  zone.Name,
		"date":       date,
		"free_slots": slots,
	})
}

func (s *HTTPServer) resolveZone(ref string) (*models.Zone, bool) {
	for _, zone := range s.svc.GetZones() {
		if zone.Name == ref {
			return zone, true
		}
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil && zone.ID == id {
			return zone, true
		}
	}
	return nil, false
}

func (s *HTTPServer) handleZones(w http.ResponseWriter, r *http.Request) {
	zones := make([]*models.Zone, 0)
	for _, zone := range s.svc.GetZones() {
		if zone.IsActive {
			zones = append(zones, zone)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, notices, err := s.svc.CreateBooking(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookingResponse{Booking: booking, Notices: notices})
}

func (s *HTTPServer) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		PaymentReference string `json:"payment_reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, notices, err := s.svc.ConfirmBooking(r.Context(), id, body.PaymentReference)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookingResponse{Booking: booking, Notices: notices})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	actor := models.ActorCustomer
	if s.isAdmin(r) {
		actor = models.ActorAdmin
	}

	booking, notices, err := s.svc.CancelBooking(r.Context(), id, body.Reason, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// A paid booking needs a refund downstream; zero-total ones do not.
	refundDue := booking.Total > 0 && booking.PaymentRef != ""
	writeJSON(w, http.StatusOK, bookingResponse{Booking: booking, Notices: notices, RefundDue: refundDue})
}

func (s *HTTPServer) handleWaiver(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Booking string `json:"booking_reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Name == "" || body.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	s.dispatchInline(r.Context(), w, models.EventWaiverSigned, body)
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Name == "" || body.Email == "" || body.Message == "" {
		writeError(w, http.StatusBadRequest, "name, email and message are required")
		return
	}

	kind := models.EventContact
	if body.Type == models.EventRequest {
		kind = models.EventRequest
	}
	s.dispatchInline(r.Context(), w, kind, body)
}

// dispatchInline sends the event synchronously: here the delivery outcome
// is the endpoint's result, unlike booking notifications.
func (s *HTTPServer) dispatchInline(ctx context.Context, w http.ResponseWriter, eventKind string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	results, err := s.dispatcher.Dispatch(dispatchCtx, eventKind, payload)
	if err != nil {
		writeError(w, http.StatusBadGateway, "dispatch failed")
		return
	}

	type recipientStatus struct {
		Recipient string `json:"recipient"`
		Error     string `json:"error,omitempty"`
	}
	out := make([]recipientStatus, 0, len(results))
	failed := 0
	for _, res := range results {
		rs := recipientStatus{Recipient: res.Recipient}
		if res.Err != nil {
			rs.Error = res.Err.Error()
			failed++
		}
		out = append(out, rs)
	}

	status := http.StatusOK
	if len(results) > 0 && failed == len(results) {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"delivered": failed == 0, "recipients": out})
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, expiry, err := s.session.Issue(body.Username, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiry.Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	// Sessions are stateless; the credential simply stops being presented.
	writeJSON(w, http.StatusOK, map[string]string{"message": s.session.Revoke()})
}

func (s *HTTPServer) handleAdminListBookings(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" {
		from = time.Now().Format("2006-01-02")
	}
	if to == "" {
		to = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	}

	bookings, err := s.svc.ListBookings(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "from": from, "to": to})
}

func (s *HTTPServer) handleAdminUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var patch service.UpdateBookingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, notices, err := s.svc.UpdateBooking(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookingResponse{Booking: booking, Notices: notices})
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.WriteSchedule(r.Context(), &buf, from, to); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusBadRequest, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=schedule_%s_to_%s.xlsx", from, to))
	_, _ = buf.WriteTo(w)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
