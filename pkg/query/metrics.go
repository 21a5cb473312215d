package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapgram",
			Subsystem: "query",
			Name:      "cache_hits_total",
			Help:      "Reads answered from the cache, including reads joining an in-flight fetch.",
		},
		[]string{"key"},
	)

	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapgram",
			Subsystem: "query",
			Name:      "fetches_total",
			Help:      "Remote fetches started by the cache.",
		},
		[]string{"key"},
	)

	fetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapgram",
			Subsystem: "query",
			Name:      "fetch_errors_total",
			Help:      "Remote fetches that settled with an error.",
		},
		[]string{"key"},
	)

	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapgram",
			Subsystem: "query",
			Name:      "invalidations_total",
			Help:      "Entries marked stale by invalidation.",
		},
		[]string{"key"},
	)

	evictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snapgram",
			Subsystem: "query",
			Name:      "evictions_total",
			Help:      "Idle entries evicted past the retention window.",
		},
	)
)
