package availability

import (
	"context"
	"fmt"

	"splashpark/internal/database"
	"splashpark/internal/domain"
	"splashpark/internal/models"
)

// Index answers slot-open queries over the set of non-cancelled bookings.
// It is a read-side pre-check: final acceptance is always the overlap test
// inside the store's create/update transaction, run against the actual
// requested duration.
type Index struct {
	repo domain.Repository
}

func NewIndex(repo domain.Repository) *Index {
	return &Index{repo: repo}
}

// Overlaps reports whether half-open ranges [a,b) and [c,d) share any
// instant: a < d AND c < b. Holds for arbitrary durations.
func Overlaps(a, b, c, d int) bool {
	return a < d && c < b
}

// IsAvailable checks whether the requested range fits within operating
// hours and does not collide with existing bookings beyond zone capacity.
func (idx *Index) IsAvailable(ctx context.Context, zoneID int64, date string, startMinute int, durationHours float64) (bool, error) {
	zone, ok := idx.repo.GetZoneByID(zoneID)
	if !ok {
		return false, database.ErrZoneNotFound
	}

	endMinute := startMinute + int(durationHours*60)
	if startMinute < zone.OpenHour*60 || endMinute > zone.CloseHour*60 {
		return false, nil
	}
	if endMinute <= startMinute {
		return false, nil
	}

	bookings, err := idx.repo.GetBookingsForDay(ctx, zoneID, date)
	if err != nil {
		return false, fmt.Errorf("failed to load bookings for availability check: %w", err)
	}

	overlapping := 0
	for _, b := range bookings {
		if Overlaps(b.StartMinute, b.EndMinute, startMinute, endMinute) {
			overlapping++
		}
	}

	return overlapping < int(zone.Capacity), nil
}

// FreeSlots returns the operating-hour start labels that would accept a
// booking of the zone's default duration. Display only: a longer requested
// duration can still conflict, which create resolves authoritatively.
func (idx *Index) FreeSlots(ctx context.Context, zoneID int64, date string) ([]string, error) {
	zone, ok := idx.repo.GetZoneByID(zoneID)
	if !ok {
		return nil, database.ErrZoneNotFound
	}

	bookings, err := idx.repo.GetBookingsForDay(ctx, zoneID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for free slots: %w", err)
	}

	duration := zone.DefaultDuration
	if duration <= 0 {
		duration = models.DefaultSlotDurationHours
	}
	slotMinutes := int(duration * 60)

	var free []string
	for h := zone.OpenHour; h < zone.CloseHour; h++ {
		start := h * 60
		end := start + slotMinutes
		if end > zone.CloseHour*60 {
			continue
		}

		overlapping := 0
		for _, b := range bookings {
			if Overlaps(b.StartMinute, b.EndMinute, start, end) {
				overlapping++
			}
		}
		if overlapping < int(zone.Capacity) {
			free = append(free, models.MinuteLabel(start))
		}
	}

	return free, nil
}
