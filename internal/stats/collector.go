// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Lookup metrics.
	MetricLookups = "tiercache_lookups_total"
	MetricHits    = "tiercache_hits_total"
	MetricMisses  = "tiercache_misses_total"

	// HitLevel observes the index of the level that served a hit.
	MetricHitLevel = "tiercache_hit_level"

	// Placement metrics.
	MetricPromotions = "tiercache_promotions_total"
	MetricDemotions  = "tiercache_demotions_total"
	MetricEvictions  = "tiercache_evictions_total"

	// Backing store metrics.
	MetricFetches       = "tiercache_fetches_total"
	MetricFetchErrors   = "tiercache_fetch_errors_total"
	MetricFetchDuration = "tiercache_fetch_duration_seconds"

	// Structure metrics.
	MetricLevels  = "tiercache_levels"
	MetricEntries = "tiercache_entries"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
