package models

import "time"

// NotifyTask represents a queued notification dispatch job.
type NotifyTask struct {
	ID          int64      `json:"id"`
	EventKind   string     `json:"event_kind"`
	BookingID   int64      `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}

const (
	EventBookingCreated   = "created"
	EventBookingConfirmed = "confirmed"
	EventBookingCancelled = "cancelled"
	EventWaiverSigned     = "waiver-signed"
	EventContact          = "contact"
	EventRequest          = "event-request"
)
