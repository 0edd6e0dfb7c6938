package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySlotCache(t *testing.T) {
	cache := NewMemorySlotCache(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetSlots", func(t *testing.T) {
		slots := []string{"10:00", "11:00"}
		require.NoError(t, cache.SetSlots(ctx, 1, "2025-07-01", slots))

		got, hit, err := cache.GetSlots(ctx, 1, "2025-07-01")
		require.NoError(t, err)
		require.True(t, hit)
		assert.Equal(t, slots, got)
	})

	t.Run("MissOnUnknownKey", func(t *testing.T) {
		_, hit, err := cache.GetSlots(ctx, 9, "2025-07-01")
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, cache.SetSlots(ctx, 2, "2025-07-02", []string{"12:00"}))
		require.NoError(t, cache.Invalidate(ctx, 2, "2025-07-02"))

		_, hit, err := cache.GetSlots(ctx, 2, "2025-07-02")
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("Expiry", func(t *testing.T) {
		short := NewMemorySlotCache(10 * time.Millisecond)
		require.NoError(t, short.SetSlots(ctx, 3, "2025-07-03", []string{"10:00"}))

		time.Sleep(20 * time.Millisecond)
		_, hit, err := short.GetSlots(ctx, 3, "2025-07-03")
		require.NoError(t, err)
		assert.False(t, hit)
	})
}
