package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueueMetrics() {
	r.QueueDepth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_offline_queue_depth",
			Help: "Pending operations waiting for replay",
		},
	)

	r.QueueEnqueued = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_offline_queue_enqueued_total",
			Help: "Operations queued while the remote service was unreachable",
		},
	)

	r.QueueReplayed = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_offline_queue_replayed_total",
			Help: "Replay results by outcome",
		},
		[]string{"outcome"},
	)

	r.QueueDeadLettered = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_offline_queue_dead_lettered_total",
			Help: "Operations moved to the dead-letter list",
		},
	)
}
