// Package metrics provides Prometheus metrics for the AI enrichment and
// search paths.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for enrichment operations.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
)

// Strategy labels for search requests.
const (
	StrategyVector   = "vector"
	StrategyFallback = "fallback"
)

// Metrics exports enrichment and search metrics in Prometheus format. A nil
// *Metrics is valid and records nothing, so callers never need to guard.
type Metrics struct {
	registry *prometheus.Registry

	enrichmentRequests *prometheus.CounterVec
	enrichmentLatency  *prometheus.HistogramVec
	searchRequests     *prometheus.CounterVec
	searchLatency      *prometheus.HistogramVec
}

// New creates a Metrics instance registered on the given registry. If registry
// is nil a new one is created.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		enrichmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stash_enrichment_requests_total",
			Help: "Enrichment operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		enrichmentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stash_enrichment_duration_seconds",
			Help:    "Enrichment operation latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"operation"}),
		searchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stash_search_requests_total",
			Help: "Search requests by strategy.",
		}, []string{"strategy"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stash_search_duration_seconds",
			Help:    "Search request latency by strategy.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"strategy"}),
	}

	registry.MustRegister(
		m.enrichmentRequests,
		m.enrichmentLatency,
		m.searchRequests,
		m.searchLatency,
	)
	return m
}

// ObserveEnrichment records one enrichment operation.
func (m *Metrics) ObserveEnrichment(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.enrichmentRequests.WithLabelValues(operation, outcome).Inc()
	m.enrichmentLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveSearch records one search request.
func (m *Metrics) ObserveSearch(strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchRequests.WithLabelValues(strategy).Inc()
	m.searchLatency.WithLabelValues(strategy).Observe(d.Seconds())
}

// Handler returns an HTTP handler serving the registry in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
