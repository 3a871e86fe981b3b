package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Database query latency (seconds)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// Task operation counts
	TaskOperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_operation_count",
			Help: "Total number of task operations",
		},
		[]string{"operation", "status"}, // operation: create, list, complete, delete
	)

	// Event publish counts
	EventPublishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_published_count",
			Help: "Total number of events published to the message bus",
		},
		[]string{"routing_key", "status"}, // status: success, failed
	)

	// Task list cache lookups
	CacheRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_cache_request_count",
			Help: "Total number of task cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	// Queries slower than the slow-query threshold
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slow_query_count",
			Help: "Total number of slow database queries",
		},
	)
)

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records database query latency.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementTaskOperation increments the task operation counter.
func IncrementTaskOperation(operation, status string) {
	TaskOperationCount.WithLabelValues(operation, status).Inc()
}

// IncrementEventPublished increments the event publish counter.
func IncrementEventPublished(routingKey, status string) {
	EventPublishedCount.WithLabelValues(routingKey, status).Inc()
}

// IncrementCacheRequest increments the cache lookup counter.
func IncrementCacheRequest(result string) {
	CacheRequestCount.WithLabelValues(result).Inc()
}

// IncrementSlowQuery increments the slow query counter.
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}
