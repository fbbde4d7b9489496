// Package metrics provides Prometheus metrics collection for the reliquary
// server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reliquary_requests_total",
			Help: "Total number of requests by protocol and status",
		},
		[]string{"protocol", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reliquary_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"protocol", "status"},
	)

	// Cache metrics
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reliquary_cache_hits_total",
			Help: "Total number of cache hits by protocol",
		},
		[]string{"protocol"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reliquary_cache_misses_total",
			Help: "Total number of cache misses by protocol",
		},
		[]string{"protocol"},
	)

	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reliquary_cache_size_bytes",
			Help: "Total size of cached artifacts in bytes",
		},
	)

	CachedArtifacts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reliquary_cached_artifacts_total",
			Help: "Total number of cached artifacts",
		},
	)

	// Upstream metrics
	UpstreamFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reliquary_upstream_fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"protocol"},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reliquary_upstream_errors_total",
			Help: "Total number of upstream fetch errors by type",
		},
		[]string{"protocol", "error_type"},
	)

	// Storage metrics
	StorageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reliquary_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reliquary_storage_errors_total",
			Help: "Total number of storage errors by operation",
		},
		[]string{"operation"},
	)

	// Active requests
	ActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reliquary_active_requests",
			Help: "Number of currently active requests",
		},
	)
)

func init() {
	// Register all metrics with Prometheus
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		CacheHits,
		CacheMisses,
		CacheSize,
		CachedArtifacts,
		UpstreamFetchDuration,
		UpstreamErrors,
		StorageOperationDuration,
		StorageErrors,
		ActiveRequests,
	)
}

// Handler returns an HTTP handler for the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest tracks request metrics with timing.
func RecordRequest(protocol string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	RequestsTotal.WithLabelValues(protocol, statusStr).Inc()
	RequestDuration.WithLabelValues(protocol, statusStr).Observe(duration.Seconds())
}

// RecordCacheHit increments cache hit counter.
func RecordCacheHit(protocol string) {
	CacheHits.WithLabelValues(protocol).Inc()
}

// RecordCacheMiss increments cache miss counter.
func RecordCacheMiss(protocol string) {
	CacheMisses.WithLabelValues(protocol).Inc()
}

// RecordUpstreamFetch tracks upstream fetch duration.
func RecordUpstreamFetch(protocol string, duration time.Duration) {
	UpstreamFetchDuration.WithLabelValues(protocol).Observe(duration.Seconds())
}

// RecordUpstreamError increments upstream error counter.
func RecordUpstreamError(protocol, errorType string) {
	UpstreamErrors.WithLabelValues(protocol, errorType).Inc()
}

// RecordStorageOperation tracks storage operation duration.
func RecordStorageOperation(operation string, duration time.Duration) {
	StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStorageError increments storage error counter.
func RecordStorageError(operation string) {
	StorageErrors.WithLabelValues(operation).Inc()
}

// UpdateCacheStats updates cache size and artifact count gauges.
func UpdateCacheStats(sizeBytes, artifactCount int64) {
	CacheSize.Set(float64(sizeBytes))
	CachedArtifacts.Set(float64(artifactCount))
}

// IncrementActiveRequests increments the active request counter.
func IncrementActiveRequests() {
	ActiveRequests.Inc()
}

// DecrementActiveRequests decrements the active request counter.
func DecrementActiveRequests() {
	ActiveRequests.Dec()
}
