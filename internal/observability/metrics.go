package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// places gateway.
type Metrics struct {
	// Mediation-layer metrics.
	CacheLookups        *prometheus.CounterVec // labels: category, result={hit,miss}
	QuotaRejections     *prometheus.CounterVec // labels: category
	RateLimitRejections *prometheus.CounterVec // labels: category
	SessionCalls        prometheus.Gauge

	// Upstream metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: category, outcome={success,zero_results,error}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint

	// Batch metrics.
	BatchItems    prometheus.Histogram
	BatchDuration prometheus.Histogram

	// Usage stream.
	UsagePublishErrors prometheus.Counter
}

// NewMetrics creates and registers all gateway metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "places_gateway",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by category and result.",
		}, []string{"category", "result"}),
		QuotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "places_gateway",
			Name:      "quota_rejections_total",
			Help:      "Requests rejected because the session call quota was spent.",
		}, []string{"category"}),
		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "places_gateway",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the per-category spacing gate.",
		}, []string{"category"}),
		SessionCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "places_gateway",
			Name:      "session_calls",
			Help:      "Upstream calls recorded in the current session window.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "places_gateway",
			Name:      "upstream_requests_total",
			Help:      "Provider API requests by category and outcome.",
		}, []string{"category", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "places_gateway",
			Name:      "upstream_duration_seconds",
			Help:      "Provider API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		BatchItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "places_gateway",
			Name:      "batch_items",
			Help:      "Number of items per batch lookup.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "places_gateway",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete batch lookup including inter-group pacing.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		UsagePublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "places_gateway",
			Name:      "usage_publish_errors_total",
			Help:      "Usage events that could not be published to Kafka.",
		}),
	}

	prometheus.MustRegister(
		m.CacheLookups,
		m.QuotaRejections,
		m.RateLimitRejections,
		m.SessionCalls,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.BatchItems,
		m.BatchDuration,
		m.UsagePublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CacheLookups:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "places_gateway", Name: "cache_lookups_total"}, []string{"category", "result"}),
		QuotaRejections:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "places_gateway", Name: "quota_rejections_total"}, []string{"category"}),
		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "places_gateway", Name: "rate_limit_rejections_total"}, []string{"category"}),
		SessionCalls:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "places_gateway", Name: "session_calls"}),
		UpstreamRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "places_gateway", Name: "upstream_requests_total"}, []string{"category", "outcome"}),
		UpstreamDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "places_gateway", Name: "upstream_duration_seconds"}, []string{"endpoint"}),
		BatchItems:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "places_gateway", Name: "batch_items"}),
		BatchDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "places_gateway", Name: "batch_duration_seconds"}),
		UsagePublishErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "places_gateway", Name: "usage_publish_errors_total"}),
	}
}
