package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits by tier (memory, redis, firestore).
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"},
	)

	// cacheMisses tracks misses across all tiers.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// cacheErrors tracks absorbed backing-store errors by operation.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_errors_total",
			Help: "Total number of cache operation errors (absorbed, best-effort)",
		},
		[]string{"tier", "operation"}, // operation: "get", "set"
	)

	// cacheBypass tracks Wrap calls that degraded to direct compute.
	cacheBypass = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_bypass_total",
			Help: "Total number of wrap calls served without cache (disabled or unconfigured)",
		},
	)
)
