package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSlotCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	cache := NewRedisSlotCache(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetSlots", func(t *testing.T) {
		slots := []string{"10:00", "11:00", "14:00"}
		err := cache.SetSlots(ctx, 1, "2025-07-01", slots)
		require.NoError(t, err)

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

	t.Run("EmptySlotListIsAHit", func(t *testing.T) {
		err := cache.SetSlots(ctx, 2, "2025-07-01", []string{})
		require.NoError(t, err)

		got, hit, err := cache.GetSlots(ctx, 2, "2025-07-01")
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Empty(t, got)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, cache.SetSlots(ctx, 3, "2025-07-02", []string{"12:00"}))
		require.NoError(t, cache.Invalidate(ctx, 3, "2025-07-02"))

		_, hit, err := cache.GetSlots(ctx, 3, "2025-07-02")
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		require.NoError(t, cache.SetSlots(ctx, 4, "2025-07-03", []string{"10:00"}))
		s.FastForward(2 * time.Hour)

		_, hit, err := cache.GetSlots(ctx, 4, "2025-07-03")
		require.NoError(t, err)
		assert.False(t, hit)
	})
}
