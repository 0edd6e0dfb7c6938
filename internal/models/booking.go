package models

import "time"

type Booking struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"`
	ZoneID        int64     `json:"zone_id"`
	ZoneName      string    `json:"zone_name"`
	Date          string    `json:"date"` // YYYY-MM-DD
	StartMinute   int       `json:"start_minute"`
	EndMinute     int       `json:"end_minute"`
	DurationHours float64   `json:"duration_hours"`
	PartySize     int       `json:"party_size"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	AddOns        []string  `json:"add_ons,omitempty"`
	CouponCode    string    `json:"coupon_code,omitempty"`
	Subtotal      float64   `json:"subtotal"`
	AddOnTotal    float64   `json:"add_on_total"`
	Discount      float64   `json:"discount"`
	Total         float64   `json:"total"`
	PaymentRef    string    `json:"payment_reference,omitempty"`
	Status        string    `json:"status"` // pending, confirmed, cancelled
	CancelReason  string    `json:"cancel_reason,omitempty"`
	CancelActor   string    `json:"cancel_actor,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// StartLabel formats the start minute as an HH:MM label.
func (b *Booking) StartLabel() string {
	return MinuteLabel(b.StartMinute)
}

// RefundDue reports whether cancelling this booking should flag a refund.
func (b *Booking) RefundDue() bool {
	return b.Status == StatusConfirmed && b.Total > 0
}
