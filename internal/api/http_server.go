package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"splashpark/internal/config"
	"splashpark/internal/database"
	"splashpark/internal/domain"
	"splashpark/internal/export"
	"splashpark/internal/metrics"
	"splashpark/internal/service"
)

// HTTPServer exposes the public booking API and the admin surface.
type HTTPServer struct {
	cfg        config.APIConfig
	svc        *service.BookingService
	session    domain.AdminSession
	exporter   *export.Exporter
	dispatcher domain.NotificationDispatcher
	server     *http.Server
	limiters   sync.Map // map[string]*rate.Limiter
	logger     zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	svc *service.BookingService,
	session domain.AdminSession,
	exporter *export.Exporter,
	dispatcher domain.NotificationDispatcher,
	logger zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:        cfg,
		svc:        svc,
		session:    session,
		exporter:   exporter,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "http").Logger(),
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
	}
	return srv
}

// Handler builds the full route table with the middleware chain applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/coupons/validate", s.handleValidateCoupon)
	mux.HandleFunc("GET /api/v1/availability/{zone}", s.handleAvailability)
	mux.HandleFunc("GET /api/v1/zones", s.handleZones)
	mux.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", s.handleConfirmBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", s.handleCancelBooking)
	mux.HandleFunc("POST /api/v1/notify/waiver", s.handleWaiver)
	mux.HandleFunc("POST /api/v1/contact", s.handleContact)

	mux.HandleFunc("POST /api/v1/admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /api/v1/admin/logout", s.requireAdmin(s.handleAdminLogout))
	mux.HandleFunc("GET /api/v1/admin/bookings", s.requireAdmin(s.handleAdminListBookings))
	mux.HandleFunc("PATCH /api/v1/admin/bookings/{id}", s.requireAdmin(s.handleAdminUpdateBooking))
	mux.HandleFunc("GET /api/v1/admin/export", s.requireAdmin(s.handleAdminExport))

	return s.loggingMiddleware(s.rateLimitMiddleware(mux))
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requireAdmin verifies the Authorization header before the handler runs.
func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.session.Verify(r.Header.Get("Authorization")); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// isAdmin reports whether the request carries a valid admin credential.
func (s *HTTPServer) isAdmin(r *http.Request) bool {
	_, err := s.session.Verify(r.Header.Get("Authorization"))
	return err == nil
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit.RPS > 0 {
			if !s.getLimiter(clientKey(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (s *HTTPServer) getLimiter(key string) *rate.Limiter {
	if v, ok := s.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := s.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(s.cfg.RateLimit.RPS), burst)
	actual, loaded := s.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, database.ErrPastDate):
		writeError(w, http.StatusBadRequest, "date is in the past")
	case errors.Is(err, database.ErrDateTooFar):
		writeError(w, http.StatusBadRequest, "date is beyond the booking horizon")
	case errors.Is(err, database.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot is no longer available")
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "booking state does not allow this operation")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "booking was modified concurrently")
	case errors.Is(err, database.ErrZoneNotFound):
		writeError(w, http.StatusNotFound, "zone not found")
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
