package coupon

import (
	"testing"
	"time"

	"splashpark/internal/models"

	"github.com/stretchr/testify/assert"
)

func testRegistry() *StaticRegistry {
	return NewStaticRegistry([]models.Coupon{
		{Code: "CANADADAY", Type: models.CouponTypePercentage, Discount: 50, MinDurationHours: 2, ValidUntil: "2025-06-01", Description: "Canada Day 50% off"},
		{Code: "splashfree", Type: models.CouponTypeFree, Description: "Free visit"},
		{Code: "TEN", Type: models.CouponTypePercentage, Discount: 10},
	})
}

func TestLedgerUnknownCode(t *testing.T) {
	ledger := NewLedger(testRegistry())

	res := ledger.Validate("NOPE", 2)
	assert.False(t, res.Valid)
	assert.Equal(t, 0.0, res.Discount)
	assert.Equal(t, models.CouponReasonUnknown, res.Reason)
}

func TestLedgerCanonicalizesCode(t *testing.T) {
	ledger := NewLedger(testRegistry())

	res := ledger.Validate("  splashFREE ", 1)
	assert.True(t, res.Valid)
	assert.Equal(t, "SPLASHFREE", res.Code)
	assert.Equal(t, models.CouponTypeFree, res.Type)
	assert.Equal(t, 100.0, res.Discount)
}

func TestLedgerExpiry(t *testing.T) {
	registry := testRegistry()

	t.Run("BeforeExpiry", func(t *testing.T) {
		now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.Local)
		ledger := NewLedgerWithClock(registry, func() time.Time { return now })

		res := ledger.Validate("CANADADAY", 2)
		assert.True(t, res.Valid)
		assert.Equal(t, 50.0, res.Discount)
	})

	t.Run("LastValidDay", func(t *testing.T) {
		// 2025-06-01 23:59:59 is still inside the validity window
		now := time.Date(2025, 6, 1, 23, 59, 59, 0, time.Local)
		ledger := NewLedgerWithClock(registry, func() time.Time { return now })

		res := ledger.Validate("CANADADAY", 2)
		assert.True(t, res.Valid)
	})

	t.Run("AfterExpiry", func(t *testing.T) {
		now := time.Date(2025, 6, 2, 0, 0, 1, 0, time.Local)
		ledger := NewLedgerWithClock(registry, func() time.Time { return now })

		res := ledger.Validate("CANADADAY", 2)
		assert.False(t, res.Valid)
		assert.Equal(t, models.CouponReasonExpired, res.Reason)
	})
}

func TestLedgerMinDuration(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.Local)
	ledger := NewLedgerWithClock(testRegistry(), func() time.Time { return now })

	res := ledger.Validate("CANADADAY", 1.5)
	assert.False(t, res.Valid)
	assert.Equal(t, models.CouponReasonMinDuration, res.Reason)

	res = ledger.Validate("CANADADAY", 2)
	assert.True(t, res.Valid)
}

func TestLedgerNoExpiryNoMinDuration(t *testing.T) {
	ledger := NewLedger(testRegistry())

	res := ledger.Validate("ten", 0.5)
	assert.True(t, res.Valid)
	assert.Equal(t, 10.0, res.Discount)
	assert.Equal(t, models.CouponTypePercentage, res.Type)
}
