package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExecutorMetrics() {
	r.ExecutorAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_executor_attempts_total",
			Help: "Remote call attempts by outcome",
		},
		[]string{"outcome"},
	)

	r.ExecutorRetriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_executor_retries_total",
			Help: "Total number of retried attempts",
		},
	)

	r.ExecutorTimeoutsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_executor_timeouts_total",
			Help: "Attempts aborted by the per-attempt deadline",
		},
	)
}
