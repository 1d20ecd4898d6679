package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ostello",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ostello",
			Name:      "availability_searches_total",
			Help:      "Availability searches by resulting status.",
		},
		[]string{"status"},
	)

	holdAcquires = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ostello",
			Name:      "hold_acquires_total",
			Help:      "Hold acquire attempts by outcome.",
		},
		[]string{"outcome"},
	)

	holdHeartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ostello",
			Name:      "hold_heartbeats_total",
			Help:      "Successful hold heartbeats.",
		},
	)

	holdsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ostello",
			Name:      "holds_expired_total",
			Help:      "Holds expired by sweep or lazy check.",
		},
	)

	quotes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ostello",
			Name:      "cart_quotes_total",
			Help:      "Cart price quotes computed.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ostello",
			Name:      "hold_sweep_duration_seconds",
			Help:      "Duration of hold expiry sweeps.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			searches,
			holdAcquires,
			holdHeartbeats,
			holdsExpired,
			quotes,
			sweepDuration,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncSearch increments the counter for a search status.
func IncSearch(status string) {
	searches.WithLabelValues(status).Inc()
}

// IncHoldAcquire increments the counter for an acquire outcome
// ("ok", "conflict", "error").
func IncHoldAcquire(outcome string) {
	holdAcquires.WithLabelValues(outcome).Inc()
}

func IncHeartbeat() {
	holdHeartbeats.Inc()
}

func AddHoldsExpired(n int) {
	holdsExpired.Add(float64(n))
}

func IncQuote() {
	quotes.Inc()
}

func ObserveSweepDuration(seconds float64) {
	sweepDuration.Observe(seconds)
}
