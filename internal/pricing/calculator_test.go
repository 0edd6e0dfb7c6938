package pricing

import (
	"fmt"
	"testing"

	"splashpark/internal/models"

	"github.com/stretchr/testify/assert"
)

func testCalculator() *Calculator {
	return NewCalculator([]models.AddOn{
		{Code: "allergy-soap", Name: "Allergy-friendly soap", Fee: 5},
		{Code: "party-pack", Name: "Party pack", Fee: 25.50},
	})
}

func TestComputeTotalNoCoupon(t *testing.T) {
	calc := testCalculator()

	quote := calc.ComputeTotal(40, 2, nil, nil)
	assert.Equal(t, 80.0, quote.Subtotal)
	assert.Equal(t, 0.0, quote.AddOnTotal)
	assert.Equal(t, 0.0, quote.Discount)
	assert.Equal(t, 80.0, quote.Total)
}

func TestComputeTotalAddOnsAreFlatFees(t *testing.T) {
	calc := testCalculator()

	quote := calc.ComputeTotal(40, 2, []string{"allergy-soap", "party-pack"}, nil)
	assert.Equal(t, 80.0, quote.Subtotal)
	assert.Equal(t, 30.5, quote.AddOnTotal)
	assert.Equal(t, 110.5, quote.Total)

	// Add-on fees do not scale with duration
	quote = calc.ComputeTotal(40, 4, []string{"allergy-soap"}, nil)
	assert.Equal(t, 5.0, quote.AddOnTotal)
}

func TestComputeTotalUnknownAddOnIsFree(t *testing.T) {
	calc := testCalculator()

	quote := calc.ComputeTotal(40, 1, []string{"jetpack"}, nil)
	assert.Equal(t, 40.0, quote.Total)
}

func TestComputeTotalFreeCouponZeroesExactly(t *testing.T) {
	calc := testCalculator()
	coupon := &models.CouponResult{Valid: true, Type: models.CouponTypeFree, Discount: 100}

	for _, duration := range []float64{0.5, 1, 2.75, 8} {
		quote := calc.ComputeTotal(39.99, duration, []string{"allergy-soap", "party-pack"}, coupon)
		assert.Equal(t, 0.0, quote.Total, "duration %v", duration)
		assert.Equal(t, quote.Subtotal+quote.AddOnTotal, quote.Discount)
	}
}

func TestComputeTotalPercentageCoupon(t *testing.T) {
	calc := testCalculator()

	quote := calc.ComputeTotal(40, 2, nil, &models.CouponResult{Valid: true, Type: models.CouponTypePercentage, Discount: 50})
	assert.Equal(t, 40.0, quote.Discount)
	assert.Equal(t, 40.0, quote.Total)

	// Rounding: 33% of 80 = 26.40, total 53.60
	quote = calc.ComputeTotal(40, 2, nil, &models.CouponResult{Valid: true, Type: models.CouponTypePercentage, Discount: 33})
	assert.Equal(t, 26.4, quote.Discount)
	assert.Equal(t, 53.6, quote.Total)

	// Half-up rounding: 12.5% of 33.33 = 4.166... -> 4.17
	quote = calc.ComputeTotal(33.33, 1, nil, &models.CouponResult{Valid: true, Type: models.CouponTypePercentage, Discount: 12.5})
	assert.Equal(t, 4.17, quote.Discount)
	assert.Equal(t, 29.16, quote.Total)
}

func TestComputeTotalMonotonicInDiscount(t *testing.T) {
	calc := testCalculator()

	prev := 1e18
	for d := 0.0; d <= 100; d += 5 {
		quote := calc.ComputeTotal(37.77, 3, nil, &models.CouponResult{Valid: true, Type: models.CouponTypePercentage, Discount: d})
		assert.LessOrEqual(t, quote.Total, prev, fmt.Sprintf("discount %v", d))
		assert.GreaterOrEqual(t, quote.Total, 0.0)
		prev = quote.Total
	}
}

func TestComputeTotalInvalidCouponIgnored(t *testing.T) {
	calc := testCalculator()
	coupon := &models.CouponResult{Valid: false, Reason: models.CouponReasonExpired}

	quote := calc.ComputeTotal(40, 2, nil, coupon)
	assert.Equal(t, 80.0, quote.Total)
	assert.Equal(t, 0.0, quote.Discount)
}
