package pricing

import (
	"math"

	"splashpark/internal/models"
)

// Calculator combines base rate, duration, add-ons and a coupon result
// into a final quote. Single fixed currency, flat add-on fees.
type Calculator struct {
	addOnFees map[string]float64
}

func NewCalculator(addOns []models.AddOn) *Calculator {
	fees := make(map[string]float64, len(addOns))
	for _, a := range addOns {
		fees[a.Code] = a.Fee
	}
	return &Calculator{addOnFees: fees}
}

// AddOnFee returns the flat fee for a known add-on code; unknown codes
// cost nothing.
func (c *Calculator) AddOnFee(code string) float64 {
	return c.addOnFees[code]
}

func (c *Calculator) ComputeTotal(baseRatePerHour, durationHours float64, addOns []string, coupon *models.CouponResult) models.Quote {
	subtotal := round2(baseRatePerHour * durationHours)

	var addOnTotal float64
	for _, code := range addOns {
		addOnTotal += c.addOnFees[code]
	}
	addOnTotal = round2(addOnTotal)

	preDiscount := subtotal + addOnTotal

	quote := models.Quote{
		Subtotal:   subtotal,
		AddOnTotal: addOnTotal,
		Total:      round2(preDiscount),
	}

	if coupon == nil || !coupon.Valid {
		return quote
	}

	switch coupon.Type {
	case models.CouponTypeFree:
		quote.Discount = round2(preDiscount)
		quote.Total = 0
	case models.CouponTypePercentage:
		discount := round2(preDiscount * coupon.Discount / 100)
		total := round2(preDiscount - discount)
		if total < 0 {
			total = 0
		}
		quote.Discount = discount
		quote.Total = total
	}

	return quote
}

// round2 rounds half away from zero to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
