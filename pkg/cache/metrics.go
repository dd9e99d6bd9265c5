package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks transcript cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcript_cache_hits_total",
			Help: "Total number of transcript cache hits",
		},
	)

	// CacheMisses tracks transcript cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcript_cache_misses_total",
			Help: "Total number of transcript cache misses",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcript_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
