package coupon

import (
	"time"

	"splashpark/internal/domain"
	"splashpark/internal/models"
)

// Ledger validates coupon codes against a registry. The expiry check runs
// against the clock at call time, never cached.
type Ledger struct {
	registry domain.CouponRegistry
	now      func() time.Time
}

func NewLedger(registry domain.CouponRegistry) *Ledger {
	return &Ledger{registry: registry, now: time.Now}
}

// NewLedgerWithClock allows tests to pin the expiry reference time.
func NewLedgerWithClock(registry domain.CouponRegistry, now func() time.Time) *Ledger {
	return &Ledger{registry: registry, now: now}
}

func (l *Ledger) Validate(code string, durationHours float64) models.CouponResult {
	canonical := Canonicalize(code)

	c, ok := l.registry.Lookup(canonical)
	if !ok {
		return models.CouponResult{Valid: false, Discount: 0, Reason: models.CouponReasonUnknown}
	}

	if c.ValidUntil != "" {
		until, err := time.ParseInLocation("2006-01-02", c.ValidUntil, time.Local)
		if err == nil {
			// Купон действует до конца дня valid_until
			expiry := until.Add(24*time.Hour - time.Second)
			if l.now().After(expiry) {
				return models.CouponResult{Valid: false, Code: canonical, Reason: models.CouponReasonExpired}
			}
		}
	}

	if c.MinDurationHours > 0 && durationHours < c.MinDurationHours {
		return models.CouponResult{Valid: false, Code: canonical, Reason: models.CouponReasonMinDuration}
	}

	discount := c.Discount
	if c.Type == models.CouponTypeFree {
		discount = 100
	}

	return models.CouponResult{
		Valid:       true,
		Code:        canonical,
		Type:        c.Type,
		Discount:    discount,
		Description: c.Description,
	}
}
