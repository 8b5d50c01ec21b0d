package snapcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_snapshot_cache_hits_total",
		Help: "Snapshot cache lookups served from the local store.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_snapshot_cache_misses_total",
		Help: "Snapshot cache lookups that required a build or shared-store read.",
	})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_snapshot_cache_evictions_total",
		Help: "Entries evicted by the LRU capacity bound.",
	})
	buildsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_snapshot_builds_coalesced_total",
		Help: "GetOrBuild calls that joined an in-flight build instead of starting one.",
	})
	buildFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_snapshot_build_failures_total",
		Help: "Snapshot builds that returned an error.",
	})
	refreshSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_snapshot_refresh_suppressed_total",
		Help: "Forced refreshes short-circuited by the minor-refresh threshold.",
	})
	sharedStoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_shared_store_errors_total",
		Help: "Best-effort shared store operations that failed.",
	})
)
