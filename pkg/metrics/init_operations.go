package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initOperationMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_operations_total",
			Help: "Total number of dispatched operations",
		},
		[]string{"service", "method", "status"},
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_operation_duration_seconds",
			Help:    "Dispatched operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	r.OperationsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_operations_in_flight",
			Help: "Current number of operations being processed",
		},
	)
}
