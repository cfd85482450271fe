package cache

// Metric names tracked with stats.Tracker, labeled with "name".
const (
	MetricHit               = "cache_hit"
	MetricMiss              = "cache_miss"
	MetricStale             = "cache_stale"
	MetricWrite             = "cache_write"
	MetricEvict             = "cache_evict"
	MetricItems             = "cache_items"
	MetricBuild             = "cache_build"
	MetricRevalidate        = "cache_revalidate"
	MetricRevalidateFailed  = "cache_revalidate_failed"
	MetricRevalidateTimeout = "cache_revalidate_timeout"
)
