package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alkitu",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alkitu",
			Name:      "request_status_transitions_total",
			Help:      "Request lifecycle transitions by edge.",
		},
		[]string{"from", "to"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alkitu",
			Name:      "notification_deliveries_total",
			Help:      "Notification delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, statusTransitions, notifications)
	})
}

// IncHTTP increments the counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncTransition counts a lifecycle transition edge.
func IncTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}

// IncNotification counts a notification outcome ("created", "delivered" or
// "failed").
func IncNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}
