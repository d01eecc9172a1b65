// internal/monitoring/metrics.go

// Package monitoring exposes pipeline counters through Prometheus and a
// small status dashboard for long-running serve mode.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the reconciliation
// pipeline.
type Metrics struct {
	PagesFetched   *prometheus.CounterVec
	FetchErrors    *prometheus.CounterVec
	ItemsProcessed *prometheus.CounterVec
	ImagesOutcome  *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ItemsInFlight  prometheus.Gauge
}

// NewMetrics registers the pipeline metrics on the given registerer.
// Pass prometheus.DefaultRegisterer outside tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched, labeled by strategy and cache outcome.",
		}, []string{"strategy", "cache"}),

		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "fetch_errors_total",
			Help:      "Fetch failures by error kind.",
		}, []string{"kind"}),

		ItemsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "items_processed_total",
			Help:      "Work items processed, labeled by outcome.",
		}, []string{"status"}),

		ImagesOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "images_total",
			Help:      "Image candidates by outcome: downloaded, skipped, rejected, failed.",
		}, []string{"outcome"}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "catalogsync",
			Name:      "run_duration_seconds",
			Help:      "Duration of complete pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),

		ItemsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "catalogsync",
			Name:      "items_in_flight",
			Help:      "Work items currently being processed (0 or 1; the pipeline is sequential).",
		}),
	}
}
