package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Operation Metrics (orchestrator dispatch)
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	OperationsInFlight prometheus.Gauge

	// Cache Metrics
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CacheEntries        prometheus.Gauge
	CacheMemoryBytes    prometheus.Gauge
	CacheInvalidations  *prometheus.CounterVec
	CacheSweepEvictions prometheus.Counter

	// Executor Metrics
	ExecutorAttemptsTotal *prometheus.CounterVec
	ExecutorRetriesTotal  prometheus.Counter
	ExecutorTimeoutsTotal prometheus.Counter

	// Connection Metrics
	ConnectionStatus       *prometheus.GaugeVec
	ConnectionQuality      *prometheus.GaugeVec
	ConnectionLatency      prometheus.Histogram
	ConnectionProbesTotal  *prometheus.CounterVec
	ConsecutiveFailures    prometheus.Gauge
	ReconnectAttemptsTotal prometheus.Counter

	// Offline Queue Metrics
	QueueDepth        prometheus.Gauge
	QueueEnqueued     prometheus.Counter
	QueueReplayed     *prometheus.CounterVec
	QueueDeadLettered prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initOperationMetrics()
	r.initCacheMetrics()
	r.initExecutorMetrics()
	r.initConnectionMetrics()
	r.initQueueMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
