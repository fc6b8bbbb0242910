// Package metrics defines the Prometheus metric collectors used across the
// matching services and exposes an HTTP handler for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors. Components accept a nil *Metrics
// and skip recording in that case.
type Metrics struct {
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	HTTPRequestsInFlight    prometheus.Gauge
	ChunksIndexedTotal      *prometheus.CounterVec
	IndexOperationsTotal    *prometheus.CounterVec
	RetrievalLatency        prometheus.Histogram
	CollectionQueryFailures *prometheus.CounterVec
	ATSScore                prometheus.Histogram
	ATSGradesTotal          *prometheus.CounterVec
	EmbeddingRequestsTotal  *prometheus.CounterVec
	EmbeddingLatency        prometheus.Histogram
	EmbeddingRetriesTotal   prometheus.Counter
	EmbeddingCacheHits      prometheus.Counter
	EmbeddingCacheMisses    prometheus.Counter
	ProfileEventsTotal      *prometheus.CounterVec
	CircuitBreakerState     *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates the collectors and registers them on reg. When
// reg is also a Gatherer, Handler serves from it; otherwise it serves the
// default gatherer.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code.",
			},
			[]string{"method", "path", "code"},
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
		ChunksIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunks_indexed_total",
				Help: "Total chunks written to the vector index by source.",
			},
			[]string{"source"},
		),
		IndexOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_operations_total",
				Help: "Index operations by source and status (ok, error).",
			},
			[]string{"source", "status"},
		),
		RetrievalLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_latency_seconds",
				Help:    "End-to-end retrieval latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		CollectionQueryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collection_query_failures_total",
				Help: "Vector collection queries that failed and degraded to empty results.",
			},
			[]string{"collection"},
		),
		ATSScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ats_total_score",
				Help:    "Distribution of ATS total scores.",
				Buckets: []float64{10, 20, 30, 40, 50, 63, 74, 83, 92, 100},
			},
		),
		ATSGradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ats_grades_total",
				Help: "ATS scores computed by letter grade.",
			},
			[]string{"grade"},
		),
		EmbeddingRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "embedding_requests_total",
				Help: "Embedding provider calls by status (ok, error).",
			},
			[]string{"status"},
		),
		EmbeddingLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "embedding_latency_seconds",
				Help:    "Embedding provider call latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		EmbeddingRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "embedding_retries_total",
				Help: "Embedding calls retried after a transient failure.",
			},
		),
		EmbeddingCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "embedding_cache_hits_total",
				Help: "Total number of embedding cache hits.",
			},
		),
		EmbeddingCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "embedding_cache_misses_total",
				Help: "Total number of embedding cache misses.",
			},
		),
		ProfileEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_events_total",
				Help: "Profile update events consumed by status (ok, error, invalid).",
			},
			[]string{"status"},
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
		m.ChunksIndexedTotal,
		m.IndexOperationsTotal,
		m.RetrievalLatency,
		m.CollectionQueryFailures,
		m.ATSScore,
		m.ATSGradesTotal,
		m.EmbeddingRequestsTotal,
		m.EmbeddingLatency,
		m.EmbeddingRetriesTotal,
		m.EmbeddingCacheHits,
		m.EmbeddingCacheMisses,
		m.ProfileEventsTotal,
		m.CircuitBreakerState,
	)

	m.gatherer = prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}
