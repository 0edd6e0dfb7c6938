package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"splashpark/internal/domain"
)

type FailoverSlotCache struct {
	primary   domain.SlotCache
	fallback  domain.SlotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSlotCache(primary, fallback domain.SlotCache, logger *zerolog.Logger) *FailoverSlotCache {
	return &FailoverSlotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSlotCache) GetSlots(ctx context.Context, zoneID int64, date string) ([]string, bool, error) {
	if !r.isDown.Load() {
		slots, hit, err := r.primary.GetSlots(ctx, zoneID, date)
		if err == nil {
			return slots, hit, nil
		}
		r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		slots, hit, err := r.primary.GetSlots(ctx, zoneID, date)
		if err == nil {
			r.isDown.Store(false)
			return slots, hit, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetSlots(ctx, zoneID, date)
}

func (r *FailoverSlotCache) SetSlots(ctx context.Context, zoneID int64, date string, slots []string) error {
	if !r.isDown.Load() {
		err := r.primary.SetSlots(ctx, zoneID, date, slots)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetSlots(ctx, zoneID, date, slots)
}

func (r *FailoverSlotCache) Invalidate(ctx context.Context, zoneID int64, date string) error {
	if !r.isDown.Load() {
		err := r.primary.Invalidate(ctx, zoneID, date)
		if err == nil {
			// Keep both sides coherent while primary is healthy.
			_ = r.fallback.Invalidate(ctx, zoneID, date)
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.Invalidate(ctx, zoneID, date)
}
