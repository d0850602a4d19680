// Package metrics defines the Prometheus collectors for the query modelling
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
	QueriesModelledTotal *prometheus.CounterVec
	ModellingLatency     *prometheus.HistogramVec
	TermsPerQuery        prometheus.Histogram
	SessionEntriesTotal  prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CorpusVocabularySize prometheus.Gauge
	CorpusArticleCount   prometheus.Gauge
	RangeComputeSeconds  prometheus.Gauge
	ActiveSessions       prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
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
		QueriesModelledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_modelled_total",
				Help: "Total modelling operations by type (reformulation, modelling, session_modelling) and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		ModellingLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modelling_latency_seconds",
				Help:    "Modelling operation latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"operation"},
		),
		TermsPerQuery: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "terms_per_query",
				Help:    "Number of ranked terms emitted per modelling operation.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),
		SessionEntriesTotal: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "session_entries_per_request",
				Help:    "Number of session entries aggregated per modelling request.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CorpusVocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_vocabulary_size",
				Help: "Number of distinct terms loaded from the corpus.",
			},
		),
		CorpusArticleCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_article_count",
				Help: "Total articles in the background corpus.",
			},
		),
		RangeComputeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "feature_range_compute_seconds",
				Help: "Wall time of the startup feature-range computation.",
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_sessions",
				Help: "Number of sessions currently held in the session store.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesModelledTotal,
		m.ModellingLatency,
		m.TermsPerQuery,
		m.SessionEntriesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CorpusVocabularySize,
		m.CorpusArticleCount,
		m.RangeComputeSeconds,
		m.ActiveSessions,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
