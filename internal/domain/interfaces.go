package domain

import (
	"context"
	"time"

	"splashpark/internal/models"
)

type Repository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error)
	CreateBookingReserved(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, from, to string) error
	UpdateBookingPayment(ctx context.Context, id, version int64, paymentRef string) error
	CancelBookingWithVersion(ctx context.Context, id, version int64, reason, actor string) error
	UpdateBookingSlotReserved(ctx context.Context, booking *models.Booking, fromVersion int64) error
	GetBookingsForDay(ctx context.Context, zoneID int64, date string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end string) ([]*models.Booking, error)
	GetDailyBookings(ctx context.Context, start, end string) (map[string][]*models.Booking, error)
	CountOverlapping(ctx context.Context, zoneID int64, date string, startMinute, endMinute int, excludeID int64) (int, error)
	SetZones(zones []models.Zone)
	GetZones() []*models.Zone
	GetZoneByID(id int64) (*models.Zone, bool)
	GetZoneByName(name string) (*models.Zone, bool)
}

// SlotCache caches computed free-slot lists per zone and date.
type SlotCache interface {
	GetSlots(ctx context.Context, zoneID int64, date string) ([]string, bool, error)
	SetSlots(ctx context.Context, zoneID int64, date string, slots []string) error
	Invalidate(ctx context.Context, zoneID int64, date string) error
}

// CouponRegistry is a read-only lookup of promotional codes.
type CouponRegistry interface {
	Lookup(code string) (*models.Coupon, bool)
}

// CouponLedger validates a code against the registry for a given duration.
type CouponLedger interface {
	Validate(code string, durationHours float64) models.CouponResult
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// RecipientResult is a per-recipient delivery outcome.
type RecipientResult struct {
	Recipient string
	Err       error
}

// NotificationDispatcher delivers a structured payload for an event kind.
// Implementations report per-recipient outcomes and never panic into the
// caller; delivery failures are the caller's to collect or retry.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, eventKind string, payload []byte) ([]RecipientResult, error)
}

// NotifyWorker accepts notification tasks for asynchronous delivery.
type NotifyWorker interface {
	EnqueueTask(ctx context.Context, eventKind string, bookingID int64, payload interface{}) error
}

// PaymentAuthorization is what the engine reads back from the payment
// provider; processing mechanics live outside this repository.
type PaymentAuthorization struct {
	Reference string
	Status    string
	Amount    float64
}

type PaymentProvider interface {
	VerifyAuthorization(ctx context.Context, reference string) (*PaymentAuthorization, error)
}

// AdminSession issues and verifies the signed credential gating mutating
// admin operations. Revocation is stateless: callers discard the token.
type AdminSession interface {
	Issue(username, password string) (string, time.Time, error)
	Verify(token string) (*Identity, error)
	Revoke() string
}

type Identity struct {
	Subject  string
	Role     string
	IssuedAt time.Time
	Expiry   time.Time
}
