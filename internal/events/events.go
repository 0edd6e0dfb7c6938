package events

import (
	"encoding/json"
	"sync"
	"time"
)

// BookingEventPayload is the booking snapshot carried by lifecycle events.
type BookingEventPayload struct {
	BookingID    int64   `json:"booking_id"`
	Reference    string  `json:"reference"`
	ZoneID       int64   `json:"zone_id"`
	ZoneName     string  `json:"zone_name"`
	Date         string  `json:"date"`
	StartLabel   string  `json:"start_label"`
	Duration     float64 `json:"duration_hours"`
	PartySize    int     `json:"party_size"`
	CustomerName string  `json:"customer_name"`
	Email        string  `json:"email"`
	Total        float64 `json:"total"`
	Status       string  `json:"status"`
	CancelReason string  `json:"cancel_reason,omitempty"`
	CancelActor  string  `json:"cancel_actor,omitempty"`
	RefundDue    bool    `json:"refund_due,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
