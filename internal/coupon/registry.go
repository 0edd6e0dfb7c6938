package coupon

import (
	"strings"

	"splashpark/internal/models"
)

// StaticRegistry is an immutable code table loaded from configuration.
// Codes are canonicalized to upper case at construction.
type StaticRegistry struct {
	coupons map[string]models.Coupon
}

func NewStaticRegistry(coupons []models.Coupon) *StaticRegistry {
	m := make(map[string]models.Coupon, len(coupons))
	for _, c := range coupons {
		c.Code = Canonicalize(c.Code)
		m[c.Code] = c
	}
	return &StaticRegistry{coupons: m}
}

func (r *StaticRegistry) Lookup(code string) (*models.Coupon, bool) {
	c, ok := r.coupons[Canonicalize(code)]
	if !ok {
		return nil, false
	}
	return &c, true
}

// Canonicalize trims and upper-cases a coupon code.
func Canonicalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
