// Package metrics holds the process-wide Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BurnCost = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regsniper_burn_cost_rao",
		Help: "Last observed burn cost in RAO",
	})

	Polls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regsniper_polls_total",
		Help: "Number of successful burn cost reads",
	})

	ReadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regsniper_read_errors_total",
		Help: "Number of failed burn cost reads",
	})

	SubmitAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regsniper_submission_attempts_total",
		Help: "Number of registration submissions attempted",
	})

	PhaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regsniper_phase_duration_seconds",
		Help:    "Duration of the read, submit, and finalize phases",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})
)

func init() {
	prometheus.MustRegister(
		BurnCost,
		Polls,
		ReadErrors,
		SubmitAttempts,
		PhaseDuration,
	)
}
