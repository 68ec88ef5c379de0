// Package metrics provides Prometheus metrics for the rendering pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntaxia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syntaxia_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Render cache metrics
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntaxia_render_cache_lookups_total",
			Help: "Render cache lookups by result (hit, miss, stale, shared)",
		},
		[]string{"result"},
	)

	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "syntaxia_render_cache_entries",
			Help: "Number of entries held by the render cache",
		},
	)

	cacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syntaxia_render_cache_evictions_total",
			Help: "Entries evicted from the render cache",
		},
	)

	// Renderer metrics
	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntaxia_renders_total",
			Help: "Expensive renders executed, by content kind and status",
		},
		[]string{"kind", "status"},
	)

	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syntaxia_render_duration_seconds",
			Help:    "Time spent in the Markdown renderer or syntax highlighter",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"kind"},
	)

	// Storage backend metrics
	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syntaxia_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syntaxia_storage_operations_total",
			Help: "Storage backend operations by status",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCacheLookup records a render cache lookup outcome.
func RecordCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetCacheEntries records the current number of cached entries.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// RecordCacheEviction records one evicted cache entry.
func RecordCacheEviction() {
	cacheEvictionsTotal.Inc()
}

// RecordRender records one execution of an expensive renderer.
func RecordRender(kind string, duration time.Duration, err error) {
	renderDuration.WithLabelValues(kind).Observe(duration.Seconds())
	rendersTotal.WithLabelValues(kind, status(err)).Inc()
}

// RecordStorageOperation records a storage backend call.
func RecordStorageOperation(backend, operation string, duration time.Duration, err error) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	storageOperationsTotal.WithLabelValues(backend, operation, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
