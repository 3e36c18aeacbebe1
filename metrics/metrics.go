// Package metrics provides Prometheus instrumentation for the analytics
// engine and its scheduled jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobRuns counts scheduled job invocations, partitioned by job name and
	// outcome.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_job_runs_total",
		Help: "Total scheduled job runs",
	}, []string{"job", "outcome"})

	// JobDuration tracks scheduled job wall time.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_job_duration_seconds",
		Help:    "Scheduled job duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"job"})

	// ProviderRateLimited counts runs cut short by a provider rate limit.
	ProviderRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_provider_rate_limited_total",
		Help: "Runs halted by a market-data provider rate limit",
	})

	// SnapshotsComputed counts snapshots produced by replay runs.
	SnapshotsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_snapshots_computed_total",
		Help: "Portfolio snapshots computed by replay",
	})

	// ExposuresEstimated counts factor exposure rows estimated.
	ExposuresEstimated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_exposures_estimated_total",
		Help: "Factor exposure rows estimated",
	})

	// DegradedValuations counts positions valued at average cost because no
	// price could be resolved.
	DegradedValuations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_degraded_valuations_total",
		Help: "Positions valued at average cost for lack of a price",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
