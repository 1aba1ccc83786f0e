package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and path
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unicollab_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unicollab_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unicollab_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	// StoreOperationDuration measures document store calls
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unicollab_store_operation_duration_seconds",
			Help:    "Document store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection", "outcome"},
	)

	// JoinCodeAttempts records how many draws a successful join code needed
	JoinCodeAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unicollab_join_code_attempts",
			Help:    "Number of draws needed to allocate a unique join code",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	// JoinCodeExhausted counts allocations that hit the attempt ceiling
	JoinCodeExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unicollab_join_code_exhausted_total",
			Help: "Join code allocations that failed after the attempt ceiling",
		},
	)

	// LiveSubscriptions counts open realtime views
	LiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unicollab_live_subscriptions",
			Help: "Number of open realtime subscriptions",
		},
		[]string{"view"},
	)
)
