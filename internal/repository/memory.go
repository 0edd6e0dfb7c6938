package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	slots     []string
	expiresAt time.Time
}

type MemorySlotCache struct {
	entries sync.Map
	ttl     time.Duration
}

func NewMemorySlotCache(ttl time.Duration) *MemorySlotCache {
	return &MemorySlotCache{
		ttl: ttl,
	}
}

func (r *MemorySlotCache) GetSlots(ctx context.Context, zoneID int64, date string) ([]string, bool, error) {
	val, ok := r.entries.Load(slotKey(zoneID, date))
	if !ok {
		return nil, false, nil
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		r.entries.Delete(slotKey(zoneID, date))
		return nil, false, nil
	}
	return entry.slots, true, nil
}

func (r *MemorySlotCache) SetSlots(ctx context.Context, zoneID int64, date string, slots []string) error {
	r.entries.Store(slotKey(zoneID, date), &memoryEntry{
		slots:     slots,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySlotCache) Invalidate(ctx context.Context, zoneID int64, date string) error {
	r.entries.Delete(slotKey(zoneID, date))
	return nil
}
