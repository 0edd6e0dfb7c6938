package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splashpark/internal/availability"
	"splashpark/internal/database"
	"splashpark/internal/domain"
	"splashpark/internal/events"
	"splashpark/internal/metrics"
	"splashpark/internal/models"
	"splashpark/internal/pricing"
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// CreateBookingRequest carries customer input for a new reservation.
type CreateBookingRequest struct {
	ZoneID        int64    `json:"zone_id"`
	ZoneName      string   `json:"zone_name"`
	Date          string   `json:"date"`
	StartLabel    string   `json:"start_time"`
	DurationHours float64  `json:"duration_hours"`
	PartySize     int      `json:"party_size"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email"`
	CustomerPhone string   `json:"customer_phone"`
	AddOns        []string `json:"add_ons"`
	CouponCode    string   `json:"coupon_code"`
}

// UpdateBookingPatch is the admin partial update. Nil fields stay unchanged.
type UpdateBookingPatch struct {
	ZoneID        *int64    `json:"zone_id"`
	Date          *string   `json:"date"`
	StartLabel    *string   `json:"start_time"`
	DurationHours *float64  `json:"duration_hours"`
	PartySize     *int      `json:"party_size"`
	CustomerName  *string   `json:"customer_name"`
	CustomerEmail *string   `json:"customer_email"`
	CustomerPhone *string   `json:"customer_phone"`
	AddOns        *[]string `json:"add_ons"`
	CouponCode    *string   `json:"coupon_code"`
	Version       int64     `json:"version"`
}

// BookingService orchestrates the booking lifecycle: validation, pricing,
// the atomic reservation, events and notifications. Non-fatal sub-errors
// (bad coupon, failed notification enqueue) are returned as notices.
type BookingService struct {
	repo           domain.Repository
	cache          domain.SlotCache
	ledger         domain.CouponLedger
	calc           *pricing.Calculator
	index          *availability.Index
	eventBus       domain.EventPublisher
	notifyWorker   domain.NotifyWorker
	payments       domain.PaymentProvider
	maxBookingDays int
	paymentTimeout time.Duration
	now            func() time.Time
	logger         *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	cache domain.SlotCache,
	ledger domain.CouponLedger,
	calc *pricing.Calculator,
	eventBus domain.EventPublisher,
	notifyWorker domain.NotifyWorker,
	payments domain.PaymentProvider,
	maxBookingDays int,
	paymentTimeout time.Duration,
	logger *zerolog.Logger,
) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.MaxBookingDays
	}
	if paymentTimeout <= 0 {
		paymentTimeout = 10 * time.Second
	}
	return &BookingService{
		repo:           repo,
		cache:          cache,
		ledger:         ledger,
		calc:           calc,
		index:          availability.NewIndex(repo),
		eventBus:       eventBus,
		notifyWorker:   notifyWorker,
		payments:       payments,
		maxBookingDays: maxBookingDays,
		paymentTimeout: paymentTimeout,
		now:            time.Now,
		logger:         logger,
	}
}

// ValidateBookingDate checks the date string against the booking horizon.
func (s *BookingService) ValidateBookingDate(date string) error {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return &ValidationError{Fields: []string{"date"}}
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if day.Before(today) {
		return database.ErrPastDate
	}
	if day.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

// CreateBooking validates, prices and atomically reserves a slot. A bad
// coupon never blocks the booking: it proceeds undiscounted and the reason
// is reported in notices.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, []string, error) {
	var notices []string

	var missing []string
	if req.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if req.CustomerEmail == "" {
		missing = append(missing, "customer_email")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.StartLabel == "" {
		missing = append(missing, "start_time")
	}
	if req.ZoneID == 0 && req.ZoneName == "" {
		missing = append(missing, "zone_id")
	}
	if len(missing) > 0 {
		return nil, nil, &ValidationError{Fields: missing}
	}

	zone, ok := s.repo.GetZoneByID(req.ZoneID)
	if !ok && req.ZoneName != "" {
		zone, ok = s.repo.GetZoneByName(req.ZoneName)
	}
	if !ok {
		return nil, nil, database.ErrZoneNotFound
	}

	if err := s.ValidateBookingDate(req.Date); err != nil {
		return nil, nil, err
	}

	startMinute, err := models.ParseMinuteLabel(req.StartLabel)
	if err != nil {
		return nil, nil, &ValidationError{Fields: []string{"start_time"}}
	}

	duration := req.DurationHours
	if duration <= 0 {
		duration = zone.DefaultDuration
	}
	endMinute := startMinute + int(duration*60)
	if startMinute < zone.OpenHour*60 || endMinute > zone.CloseHour*60 {
		return nil, nil, &ValidationError{Fields: []string{"start_time"}}
	}
	if req.PartySize <= 0 {
		return nil, nil, &ValidationError{Fields: []string{"party_size"}}
	}

	var couponResult *models.CouponResult
	couponCode := ""
	if req.CouponCode != "" {
		result := s.ledger.Validate(req.CouponCode, duration)
		couponResult = &result
		if result.Valid {
			couponCode = result.Code
		} else {
			notices = append(notices, fmt.Sprintf("coupon %q not applied: %s", req.CouponCode, result.Reason))
		}
	}

	quote := s.calc.ComputeTotal(zone.BaseRatePerHour, duration, req.AddOns, couponResult)

	booking := &models.Booking{
		Reference:     uuid.NewString(),
		ZoneID:        zone.ID,
		ZoneName:      zone.Name,
		Date:          req.Date,
		StartMinute:   startMinute,
		EndMinute:     endMinute,
		DurationHours: duration,
		PartySize:     req.PartySize,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		AddOns:        req.AddOns,
		CouponCode:    couponCode,
		Subtotal:      quote.Subtotal,
		AddOnTotal:    quote.AddOnTotal,
		Discount:      quote.Discount,
		Total:         quote.Total,
	}

	if err := s.repo.CreateBookingReserved(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotConflict) {
			metrics.IncSlotConflict()
		}
		return nil, nil, err
	}
	metrics.IncBookingCreated()

	s.invalidateSlots(ctx, booking.ZoneID, booking.Date)
	s.publishEvent(models.EventBookingCreated, booking, false)
	notices = s.enqueueNotify(ctx, models.EventBookingCreated, booking, notices)

	return booking, notices, nil
}

// ConfirmBooking moves a pending booking to confirmed. An empty payment
// reference is accepted only for zero-total bookings.
func (s *BookingService) ConfirmBooking(ctx context.Context, id int64, paymentRef string) (*models.Booking, []string, error) {
	var notices []string

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if paymentRef == "" && booking.Total > 0 {
		return nil, nil, &ValidationError{Fields: []string{"payment_reference"}}
	}

	if paymentRef != "" && s.payments != nil {
		verifyCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
		auth, verr := s.payments.VerifyAuthorization(verifyCtx, paymentRef)
		cancel()
		switch {
		case verr != nil || auth == nil:
			notices = append(notices, "payment authorization could not be verified")
			s.logger.Warn().Err(verr).Int64("booking_id", id).Msg("payment verify failed")
		case auth.Status != "authorized":
			notices = append(notices, fmt.Sprintf("payment authorization status is %q", auth.Status))
		case auth.Amount+0.005 < booking.Total:
			notices = append(notices, "authorized amount is below the booking total")
		}
	}

	if paymentRef != "" {
		err = s.repo.UpdateBookingPayment(ctx, id, booking.Version, paymentRef)
	} else {
		err = s.repo.UpdateBookingStatusWithVersion(ctx, id, booking.Version, models.StatusPending, models.StatusConfirmed)
	}
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	s.publishEvent(models.EventBookingConfirmed, updated, false)
	notices = s.enqueueNotify(ctx, models.EventBookingConfirmed, updated, notices)
	return updated, notices, nil
}

// CancelBooking cancels a pending or confirmed booking and records who
// asked for it. The refund flag is raised when a paid confirmed booking
// is cancelled; refund execution is downstream.
func (s *BookingService) CancelBooking(ctx context.Context, id int64, reason, actor string) (*models.Booking, []string, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	refundDue := booking.RefundDue()

	if err := s.repo.CancelBookingWithVersion(ctx, id, booking.Version, reason, actor); err != nil {
		return nil, nil, err
	}
	metrics.IncBookingCancelled()

	updated, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	s.invalidateSlots(ctx, updated.ZoneID, updated.Date)
	s.publishEvent(models.EventBookingCancelled, updated, refundDue)
	notices := s.enqueueNotify(ctx, models.EventBookingCancelled, updated, nil)

	return updated, notices, nil
}

// UpdateBooking applies an admin patch. Slot moves are re-checked against
// other bookings only; price is recomputed when pricing inputs change.
func (s *BookingService) UpdateBooking(ctx context.Context, id int64, patch UpdateBookingPatch) (*models.Booking, []string, error) {
	var notices []string

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if booking.Status == models.StatusCancelled {
		return nil, nil, database.ErrInvalidTransition
	}

	fromVersion := booking.Version
	if patch.Version != 0 {
		fromVersion = patch.Version
	}
	oldZoneID, oldDate := booking.ZoneID, booking.Date

	repriceNeeded := false
	if patch.ZoneID != nil && *patch.ZoneID != booking.ZoneID {
		zone, ok := s.repo.GetZoneByID(*patch.ZoneID)
		if !ok {
			return nil, nil, database.ErrZoneNotFound
		}
		booking.ZoneID = zone.ID
		booking.ZoneName = zone.Name
		repriceNeeded = true
	}
	if patch.Date != nil && *patch.Date != booking.Date {
		if err := s.ValidateBookingDate(*patch.Date); err != nil {
			return nil, nil, err
		}
		booking.Date = *patch.Date
	}
	if patch.StartLabel != nil {
		startMinute, err := models.ParseMinuteLabel(*patch.StartLabel)
		if err != nil {
			return nil, nil, &ValidationError{Fields: []string{"start_time"}}
		}
		booking.StartMinute = startMinute
	}
	if patch.DurationHours != nil {
		if *patch.DurationHours <= 0 {
			return nil, nil, &ValidationError{Fields: []string{"duration_hours"}}
		}
		booking.DurationHours = *patch.DurationHours
		repriceNeeded = true
	}
	if patch.PartySize != nil {
		if *patch.PartySize <= 0 {
			return nil, nil, &ValidationError{Fields: []string{"party_size"}}
		}
		booking.PartySize = *patch.PartySize
	}
	if patch.CustomerName != nil {
		booking.CustomerName = *patch.CustomerName
	}
	if patch.CustomerEmail != nil {
		booking.CustomerEmail = *patch.CustomerEmail
	}
	if patch.CustomerPhone != nil {
		booking.CustomerPhone = *patch.CustomerPhone
	}
	if patch.AddOns != nil {
		booking.AddOns = *patch.AddOns
		repriceNeeded = true
	}
	if patch.CouponCode != nil {
		booking.CouponCode = *patch.CouponCode
		repriceNeeded = true
	}

	booking.EndMinute = booking.StartMinute + int(booking.DurationHours*60)

	zone, ok := s.repo.GetZoneByID(booking.ZoneID)
	if !ok {
		return nil, nil, database.ErrZoneNotFound
	}
	if booking.StartMinute < zone.OpenHour*60 || booking.EndMinute > zone.CloseHour*60 {
		return nil, nil, &ValidationError{Fields: []string{"start_time"}}
	}

	if repriceNeeded {
		var couponResult *models.CouponResult
		code := ""
		if booking.CouponCode != "" {
			result := s.ledger.Validate(booking.CouponCode, booking.DurationHours)
			couponResult = &result
			if result.Valid {
				code = result.Code
			} else {
				notices = append(notices, fmt.Sprintf("coupon %q not applied: %s", booking.CouponCode, result.Reason))
			}
		}
		booking.CouponCode = code

		quote := s.calc.ComputeTotal(zone.BaseRatePerHour, booking.DurationHours, booking.AddOns, couponResult)
		booking.Subtotal = quote.Subtotal
		booking.AddOnTotal = quote.AddOnTotal
		booking.Discount = quote.Discount
		booking.Total = quote.Total
	}

	if err := s.repo.UpdateBookingSlotReserved(ctx, booking, fromVersion); err != nil {
		if errors.Is(err, database.ErrSlotConflict) {
			metrics.IncSlotConflict()
		}
		return nil, nil, err
	}

	s.invalidateSlots(ctx, oldZoneID, oldDate)
	s.invalidateSlots(ctx, booking.ZoneID, booking.Date)

	return booking, notices, nil
}

// ValidateCoupon is the read-only coupon check for the public endpoint.
func (s *BookingService) ValidateCoupon(code string, durationHours float64) models.CouponResult {
	if durationHours <= 0 {
		durationHours = models.DefaultSlotDurationHours
	}
	return s.ledger.Validate(code, durationHours)
}

// FreeSlots serves the availability endpoint through the slot cache.
func (s *BookingService) FreeSlots(ctx context.Context, zoneID int64, date string) ([]string, error) {
	if err := s.ValidateBookingDate(date); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if slots, hit, err := s.cache.GetSlots(ctx, zoneID, date); err == nil && hit {
			return slots, nil
		}
	}

	slots, err := s.index.FreeSlots(ctx, zoneID, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetSlots(ctx, zoneID, date, slots); err != nil {
			s.logger.Warn().Err(err).Int64("zone_id", zoneID).Str("date", date).Msg("slot cache set failed")
		}
	}
	return slots, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	return s.repo.GetBookingByReference(ctx, ref)
}

func (s *BookingService) ListBookings(ctx context.Context, from, to string) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, from, to)
}

func (s *BookingService) GetDailyBookings(ctx context.Context, from, to string) (map[string][]*models.Booking, error) {
	return s.repo.GetDailyBookings(ctx, from, to)
}

func (s *BookingService) GetZones() []*models.Zone {
	return s.repo.GetZones()
}

func (s *BookingService) invalidateSlots(ctx context.Context, zoneID int64, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, zoneID, date); err != nil {
		s.logger.Warn().Err(err).Int64("zone_id", zoneID).Str("date", date).Msg("slot cache invalidate failed")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, refundDue bool) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		Reference:    booking.Reference,
		ZoneID:       booking.ZoneID,
		ZoneName:     booking.ZoneName,
		Date:         booking.Date,
		StartLabel:   booking.StartLabel(),
		Duration:     booking.DurationHours,
		PartySize:    booking.PartySize,
		CustomerName: booking.CustomerName,
		Email:        booking.CustomerEmail,
		Total:        booking.Total,
		Status:       booking.Status,
		CancelReason: booking.CancelReason,
		CancelActor:  booking.CancelActor,
		RefundDue:    refundDue,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueNotify(ctx context.Context, eventKind string, booking *models.Booking, notices []string) []string {
	if s.notifyWorker == nil {
		return notices
	}

	if err := s.notifyWorker.EnqueueTask(ctx, eventKind, booking.ID, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("event_kind", eventKind).Msg("notify enqueue error")
		notices = append(notices, "notification could not be scheduled")
	}
	return notices
}
