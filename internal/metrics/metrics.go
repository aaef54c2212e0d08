// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finadvisor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finadvisor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Database connection metrics
	DBConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finadvisor_db_connect_attempts_total",
			Help: "Database connection attempts by outcome (success, error, timeout)",
		},
		[]string{"outcome"},
	)

	DBConnectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finadvisor_db_connect_duration_seconds",
			Help:    "Time spent establishing a database connection",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	// Language-model generation metrics
	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finadvisor_generation_requests_total",
			Help: "Generation requests by kind (chat, advice, strategy) and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// ObserveGeneration counts one generation request of the given kind.
func ObserveGeneration(kind string, err error) {
	outcome := OutcomeSuccess
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
	case err != nil:
		outcome = OutcomeError
	}
	GenerationRequests.WithLabelValues(kind, outcome).Inc()
}
