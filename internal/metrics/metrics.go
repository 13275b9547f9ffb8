package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmailProcessedCount counts processed emails by result status.
	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gg_email_processed_total",
			Help: "Total number of notification emails processed",
		},
		[]string{"status"}, // success, error, failed
	)

	// PersistenceOutcomeCount counts persistence attempts by outcome.
	PersistenceOutcomeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gg_persistence_outcome_total",
			Help: "Total number of persistence attempts by outcome",
		},
		[]string{"outcome"}, // saved, failed, skipped
	)

	// SinkCallDuration tracks latency of calls to the persistence backend.
	SinkCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gg_sink_call_duration_seconds",
			Help:    "Persistence backend call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"backend", "operation"},
	)

	// HTTPRequestDuration tracks HTTP handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gg_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// IncrementEmailProcessed records one processed email.
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}

// IncrementPersistenceOutcome records one persistence attempt.
func IncrementPersistenceOutcome(outcome string) {
	PersistenceOutcomeCount.WithLabelValues(outcome).Inc()
}

// RecordSinkCall records the latency of a backend call.
func RecordSinkCall(backend, operation string, duration time.Duration) {
	SinkCallDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration records the latency of an HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
