// Package metrics defines the Prometheus collectors used by the query engine
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	ResultsCount         prometheus.Histogram
	ExpansionsTotal      prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	FeatureRowsTotal     *prometheus.CounterVec
	DocsSkippedTotal     prometheus.Counter
	RankerRunsTotal      *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. A nil reg uses the
// process-wide default registry.
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
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qryeval_queries_total",
				Help: "Evaluated queries by retrieval model and outcome (ok, empty, syntax_error, error).",
			},
			[]string{"model", "status"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qryeval_query_latency_seconds",
				Help:    "Query parse plus evaluation latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
			[]string{"model"},
		),
		ResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "qryeval_results_count",
				Help:    "Number of matching documents per evaluated query.",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
			},
		),
		ExpansionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qryeval_feedback_expansions_total",
				Help: "Total queries expanded by relevance feedback.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qryeval_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qryeval_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qryeval_docs_indexed_total",
				Help: "Total documents added to the index.",
			},
		),
		FeatureRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qryeval_feature_rows_total",
				Help: "Learning-to-rank feature rows extracted by stage (train, test).",
			},
			[]string{"stage"},
		),
		DocsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qryeval_feature_docs_skipped_total",
				Help: "Documents skipped during feature extraction because their id could not be resolved.",
			},
		),
		RankerRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qryeval_ranker_runs_total",
				Help: "External ranker invocations by stage (learn, classify) and status.",
			},
			[]string{"stage", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.ResultsCount,
		m.ExpansionsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.FeatureRowsTotal,
		m.DocsSkippedTotal,
		m.RankerRunsTotal,
		m.CircuitBreakerState,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
