package models

import "fmt"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
	ActorSystem   = "system"
)

const (
	// DefaultRedisTTL время жизни кэша слотов в Redis
	DefaultRedisTTL = 5 * 60 // 5 минут в секундах

	// DefaultSlotDurationHours длительность слота по умолчанию
	DefaultSlotDurationHours = 1.0

	// MaxBookingDays максимальный горизонт бронирования
	MaxBookingDays = 180

	// WorkerQueueSize размер очереди воркера уведомлений
	WorkerQueueSize = 128

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 30

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах

	// AdminSessionHours время жизни админской сессии
	AdminSessionHours = 8
)

// CanTransition reports whether a booking status change is allowed.
// Only pending->confirmed, pending->cancelled and confirmed->cancelled
// are valid; cancelled is terminal.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	default:
		return false
	}
}

// MinuteLabel formats a minute-of-day as HH:MM.
func MinuteLabel(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseMinuteLabel parses an HH:MM label into a minute-of-day.
func ParseMinuteLabel(label string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(label, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time label %q: %w", label, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time label out of range: %q", label)
	}
	return h*60 + m, nil
}
