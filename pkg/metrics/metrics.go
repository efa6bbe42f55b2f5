package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordOperation records a dispatched operation with its duration
func (r *Registry) RecordOperation(service, method, status string, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(service, method, status).Inc()
	r.OperationDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// UpdateCacheStats pushes a cache stats snapshot into the gauges
func (r *Registry) UpdateCacheStats(entries, memoryBytes int) {
	r.CacheEntries.Set(float64(entries))
	r.CacheMemoryBytes.Set(float64(memoryBytes))
}

// RecordProbe records a probe outcome with its latency
func (r *Registry) RecordProbe(success bool, latency time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.ConnectionProbesTotal.WithLabelValues(outcome).Inc()
	if success {
		r.ConnectionLatency.Observe(latency.Seconds())
	}
}

// SetConnectionStatus sets the one-hot status gauge
func (r *Registry) SetConnectionStatus(status string) {
	for _, s := range []string{"online", "offline", "reconnecting", "unstable"} {
		v := 0.0
		if s == status {
			v = 1.0
		}
		r.ConnectionStatus.WithLabelValues(s).Set(v)
	}
}

// SetConnectionQuality sets the one-hot quality gauge
func (r *Registry) SetConnectionQuality(quality string) {
	for _, q := range []string{"excellent", "good", "poor", "critical"} {
		v := 0.0
		if q == quality {
			v = 1.0
		}
		r.ConnectionQuality.WithLabelValues(q).Set(v)
	}
}

// RecordReplay records a replay outcome for one pending operation
func (r *Registry) RecordReplay(outcome string) {
	r.QueueReplayed.WithLabelValues(outcome).Inc()
}

// Handler returns an HTTP handler exposing the registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
