package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	SpendAccepted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "credits_spend_accepted_total", Help: "Deductions that passed the affordability check"})
	SpendRejected  = prometheus.NewCounter(prometheus.CounterOpts{Name: "credits_spend_rejected_total", Help: "Deductions rejected for insufficient balance"})
	LedgerSyncFail = prometheus.NewCounter(prometheus.CounterOpts{Name: "credits_ledger_sync_failures_total", Help: "Remote ledger writes that failed after fallback"})
	JobsSucceeded  = prometheus.NewCounter(prometheus.CounterOpts{Name: "render_jobs_succeeded_total", Help: "Generation jobs resolved as succeeded"})
	JobsFailed     = prometheus.NewCounter(prometheus.CounterOpts{Name: "render_jobs_failed_total", Help: "Generation jobs resolved as failed or canceled"})
	JobsTimedOut   = prometheus.NewCounter(prometheus.CounterOpts{Name: "render_jobs_timed_out_total", Help: "Generation jobs force-resolved after the hard ceiling"})
	PollSweeps     = prometheus.NewCounter(prometheus.CounterOpts{Name: "render_poll_sweeps_total", Help: "Status sweeps performed over outstanding jobs"})
	OutstandingSet = prometheus.NewGauge(prometheus.GaugeOpts{Name: "render_jobs_outstanding", Help: "Jobs currently awaiting a terminal state"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			SpendAccepted,
			SpendRejected,
			LedgerSyncFail,
			JobsSucceeded,
			JobsFailed,
			JobsTimedOut,
			PollSweeps,
			OutstandingSet,
		)
	})
	return promhttp.Handler()
}
