package models

type Coupon struct {
	Code             string  `yaml:"code"`
	Type             string  `yaml:"type"` // percentage, free
	Discount         float64 `yaml:"discount"`
	Description      string  `yaml:"description"`
	MinDurationHours float64 `yaml:"min_duration_hours"`
	ValidUntil       string  `yaml:"valid_until"` // YYYY-MM-DD, empty = no expiry
}

// CouponResult is the outcome of validating a code against the registry.
// An invalid coupon is a normal negative result, never an error: Reason
// distinguishes the cases for user messaging.
type CouponResult struct {
	Valid       bool    `json:"valid"`
	Code        string  `json:"code,omitempty"`
	Type        string  `json:"type,omitempty"`
	Discount    float64 `json:"discount"`
	Description string  `json:"description,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

const (
	CouponTypePercentage = "percentage"
	CouponTypeFree       = "free"

	CouponReasonUnknown     = "unknown code"
	CouponReasonExpired     = "expired"
	CouponReasonMinDuration = "insufficient duration"
)
