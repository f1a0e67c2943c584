// Package metrics defines the Prometheus metric collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	ArtifactLookupsTotal  *prometheus.CounterVec
	ArtifactBuildDuration *prometheus.HistogramVec
	DocsIndexedTotal      *prometheus.CounterVec
	BulkFailuresTotal     *prometheus.CounterVec
	CorpusProgress        *prometheus.GaugeVec
	RetrievalQueriesTotal *prometheus.CounterVec
	SearchLatency         *prometheus.HistogramVec
	PredictionCacheTotal  *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide Metrics, registering the collectors with
// the default Prometheus registry on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates all collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
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
		ArtifactLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifact_lookups_total",
				Help: "Artifact cache lookups by kind and result (hit, miss, corrupt, rebuild).",
			},
			[]string{"kind", "result"},
		),
		ArtifactBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "artifact_build_duration_seconds",
				Help:    "Time spent rebuilding an artifact.",
				Buckets: []float64{0.01, 0.1, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"kind"},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents bulk loaded into a search index.",
			},
			[]string{"index"},
		),
		BulkFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulk_failures_total",
				Help: "Documents rejected during bulk load.",
			},
			[]string{"index"},
		),
		CorpusProgress: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corpus_build_progress_ratio",
				Help: "Fraction of buckets processed by the running corpus build.",
			},
			[]string{"corpus"},
		),
		RetrievalQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_queries_total",
				Help: "Retrieval queries by mode and outcome (ok, no_terms, error).",
			},
			[]string{"mode", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Latency of a batched search call.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
			[]string{"mode"},
		),
		PredictionCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prediction_cache_total",
				Help: "Prediction cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.HTTPRequestsInFlight,
			m.ArtifactLookupsTotal,
			m.ArtifactBuildDuration,
			m.DocsIndexedTotal,
			m.BulkFailuresTotal,
			m.CorpusProgress,
			m.RetrievalQueriesTotal,
			m.SearchLatency,
			m.PredictionCacheTotal,
			m.CircuitBreakerState,
		)
	}

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
