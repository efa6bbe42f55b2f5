package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCacheMetrics() {
	r.CacheHitsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	r.CacheMissesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	r.CacheEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	r.CacheMemoryBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_cache_memory_bytes",
			Help: "Approximate cache memory footprint in bytes",
		},
	)

	r.CacheInvalidations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_cache_invalidations_total",
			Help: "Cache invalidations by key prefix",
		},
		[]string{"prefix"},
	)

	r.CacheSweepEvictions = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_cache_sweep_evictions_total",
			Help: "Entries evicted by the background sweeper",
		},
	)
}
