// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	IndexBuildsTotal     *prometheus.CounterVec
	IndexBuildDuration   prometheus.Histogram
	IndexLoadsTotal      *prometheus.CounterVec
	DocsIndexedTotal     prometheus.Counter
	CachedCollections    prometheus.Gauge
	MemoryQueriesTotal   *prometheus.CounterVec
	MemoryQueryLatency   *prometheus.HistogramVec
	MemoryResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil reg means
// the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memory_index_builds_total",
				Help: "Collection index builds by status (ok, not_found, no_documents, error).",
			},
			[]string{"status"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "memory_index_build_duration_seconds",
				Help:    "Time to read, fit and persist one collection index.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		IndexLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memory_index_loads_total",
				Help: "Sidecar index loads by status (ok, error).",
			},
			[]string{"status"},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "memory_docs_indexed_total",
				Help: "Total documents fitted into collection indices.",
			},
		),
		CachedCollections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_cached_collections",
				Help: "Number of collection indices held in memory.",
			},
		),
		MemoryQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memory_queries_total",
				Help: "Memory queries by scope (collection, all) and result type (hit, zero_result, unavailable).",
			},
			[]string{"scope", "result_type"},
		),
		MemoryQueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memory_query_latency_seconds",
				Help:    "Memory query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"scope"},
		),
		MemoryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "memory_results_count",
				Help:    "Number of results returned per memory query.",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "memory_cache_hits_total",
				Help: "Total number of query-result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "memory_cache_misses_total",
				Help: "Total number of query-result cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.IndexLoadsTotal,
		m.DocsIndexedTotal,
		m.CachedCollections,
		m.MemoryQueriesTotal,
		m.MemoryQueryLatency,
		m.MemoryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g, or for the
// default gatherer when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
