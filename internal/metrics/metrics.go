package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "splashpark",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "splashpark",
			Name:      "bookings_created_total",
			Help:      "Bookings persisted in pending state.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "splashpark",
			Name:      "bookings_cancelled_total",
			Help:      "Booking cancellations by customers or admins.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "splashpark",
			Name:      "slot_conflicts_total",
			Help:      "Create or update attempts rejected on overlap.",
		},
	)

	notifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "splashpark",
			Name:      "notify_failures_total",
			Help:      "Notification dispatch failures by event kind.",
		},
		[]string{"event_kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingsCancelled, slotConflicts, notifyFailures)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated()   { bookingsCreated.Inc() }
func IncBookingCancelled() { bookingsCancelled.Inc() }
func IncSlotConflict()     { slotConflicts.Inc() }

func IncNotifyFailure(eventKind string) {
	notifyFailures.WithLabelValues(eventKind).Inc()
}
