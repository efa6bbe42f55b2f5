package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initConnectionMetrics() {
	r.ConnectionStatus = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portfolio_connection_status",
			Help: "Connection status (1 for the current status, 0 otherwise)",
		},
		[]string{"status"},
	)

	r.ConnectionQuality = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portfolio_connection_quality",
			Help: "Connection quality tier (1 for the current tier, 0 otherwise)",
		},
		[]string{"quality"},
	)

	r.ConnectionLatency = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portfolio_connection_probe_latency_seconds",
			Help:    "Probe round-trip latency in seconds",
			Buckets: []float64{0.05, 0.15, 0.4, 1.0, 2.5, 5.0},
		},
	)

	r.ConnectionProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_connection_probes_total",
			Help: "Probe results by outcome",
		},
		[]string{"outcome"},
	)

	r.ConsecutiveFailures = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_connection_consecutive_failures",
			Help: "Current run of consecutive probe failures",
		},
	)

	r.ReconnectAttemptsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_connection_reconnect_attempts_total",
			Help: "Manual and scheduled reconnect attempts",
		},
	)
}
