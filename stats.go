package tiercache

// Stats contains cache statistics.
type Stats struct {
	Lookups     int64
	Hits        int64
	Misses      int64
	Promotions  int64
	Evictions   int64 // Entries that left the cache
	Demotions   int64
	Fetches     int64
	FetchErrors int64
	Entries     int // Current number of entries across all levels

	Levels []LevelStats
}

// LevelStats contains the statistics of one level. Counters start at zero
// when the level is added. Evictions include victims demoted to the next
// level.
type LevelStats struct {
	Index     int
	Capacity  int
	Policy    string
	Entries   int
	Hits      int64
	Evictions int64
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// LevelHitRate returns the share of lookups served by level index, as a
// percentage.
func (s Stats) LevelHitRate(index int) float64 {
	if index < 0 || index >= len(s.Levels) || s.Lookups == 0 {
		return 0
	}
	return float64(s.Levels[index].Hits) / float64(s.Lookups) * 100
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Lookups:     c.lookups.Load(),
		Misses:      c.misses.Load(),
		Promotions:  c.promotions.Load(),
		Fetches:     c.fetches.Load(),
		FetchErrors: c.fetchErrors.Load(),
		Levels:      make([]LevelStats, len(c.tiers)),
	}
	s.Hits = c.hits
	s.Evictions = c.evictions
	s.Demotions = c.demotions
	for i, t := range c.tiers {
		s.Entries += t.Len()
		s.Levels[i] = LevelStats{
			Index:     i,
			Capacity:  t.Capacity(),
			Policy:    string(t.Kind()),
			Entries:   t.Len(),
			Hits:      t.hits,
			Evictions: t.evictions,
		}
	}
	return s
}
