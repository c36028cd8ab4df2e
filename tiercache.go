// Package tiercache provides a tiered in-process cache: an ordered stack of
// bounded levels, each with its own eviction policy, behind one key/value
// interface.
//
// Lookups search level 0 first. A hit at a lower level promotes the entry
// through every level above it. A full miss consults the backing store and
// inserts the result at level 0. Insertions always target level 0. By
// default an entry evicted by a level's policy leaves the cache entirely;
// WithDemotion moves it one level down instead.
//
// Example usage:
//
//	c, err := tiercache.New[string, []byte](
//	    tiercache.NewStoreFetcher(st),
//	    tiercache.WithLevels(
//	        tiercache.LevelConfig{Capacity: 128, Policy: "LRU"},
//	        tiercache.LevelConfig{Capacity: 4096, Policy: "LFU"},
//	    ),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	v, err := c.Get(ctx, "user:42")
package tiercache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/singleflight"

	"github.com/discochess/tiercache/internal/level"
	"github.com/discochess/tiercache/internal/policy"
	"github.com/discochess/tiercache/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNotFound indicates a full miss that no backing store could serve.
	ErrNotFound = errors.New("tiercache: key not found")

	// ErrClosed indicates the cache has been closed.
	ErrClosed = errors.New("tiercache: cache closed")

	// ErrUnsupportedPolicy indicates an eviction policy other than LRU or LFU.
	ErrUnsupportedPolicy = errors.New("tiercache: unsupported eviction policy")

	// ErrInvalidCapacity indicates a level capacity below one.
	ErrInvalidCapacity = errors.New("tiercache: invalid level capacity")

	// ErrInvalidLevelIndex indicates a level index outside [0, Levels()).
	ErrInvalidLevelIndex = errors.New("tiercache: invalid level index")

	// ErrFetch wraps failures reported by the backing store.
	ErrFetch = errors.New("tiercache: backing store fetch failed")

	// ErrInconsistent indicates broken internal invariants. It always
	// points at a bug.
	ErrInconsistent = errors.New("tiercache: inconsistent state")
)

// Entry is a resident key and its value.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// LevelSnapshot is a point-in-time view of one level.
type LevelSnapshot[K comparable, V any] struct {
	Index    int
	Capacity int
	Policy   string

	// Entries are in eviction order, next victim first.
	Entries []Entry[K, V]
}

// tier is a level plus the counters that belong to it.
type tier[K comparable, V any] struct {
	*level.Level[K, V]
	hits      int64
	evictions int64
}

// Cache is a multilevel cache.
//
// A single mutex guards the level stack, every level's entries and every
// policy; each public operation holds it for its whole duration. The one
// exception is the backing store call on a full miss, which runs unlocked
// and is re-validated afterwards. A Cache is safe for concurrent use by
// multiple goroutines.
type Cache[K comparable, V any] struct {
	fetcher Fetcher[K, V]
	stats   stats.Collector
	logger  *zap.Logger
	flights singleflight.Group

	mu        sync.Mutex
	tiers     []*tier[K, V]
	closed    bool
	hits      int64
	evictions int64
	demotions int64
	demote    bool

	lookups     atomic.Int64
	misses      atomic.Int64
	promotions  atomic.Int64
	fetches     atomic.Int64
	fetchErrors atomic.Int64
}

// New creates a cache that falls back to fetcher on a full miss.
// A nil fetcher makes full misses return ErrNotFound.
func New[K comparable, V any](fetcher Fetcher[K, V], opts ...Option) (*Cache[K, V], error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	c := &Cache[K, V]{
		fetcher: fetcher,
		stats:   cfg.stats,
		logger:  cfg.logger,
		demote:  cfg.demote,
	}

	for _, lc := range cfg.levels {
		if _, err := c.AddLevel(lc); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("cache initialized",
		zap.Int("levels", len(c.tiers)),
		zap.Bool("fetcher", fetcher != nil),
		zap.Bool("demotion", cfg.demote),
	)

	return c, nil
}

// Get returns the value for key.
//
// Levels are searched from 0 down. A hit below level 0 moves the entry up
// one level at a time until it reaches level 0; each step is a normal put
// and may evict from the target level. On a full miss the backing store is
// consulted and its value inserted at level 0. Backing store failures are
// returned wrapped in ErrFetch and nothing is cached. If ctx is done before
// the value arrives Get returns ctx.Err(); a fetch shared with other callers
// keeps running for them.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.lookups.Add(1)
	c.stats.IncCounter(stats.MetricLookups, 1)

	v, found, err := c.lookup(key)
	if err != nil || found {
		return v, err
	}

	c.misses.Add(1)
	c.stats.IncCounter(stats.MetricMisses, 1)
	return c.load(ctx, key)
}

// Put stores value under key at level 0. Lower levels are not touched.
// With no levels configured Put does nothing.
func (c *Cache[K, V]) Put(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.putLocked(key, value)
}

// Delete removes key from every level and reports whether any copy existed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	for _, t := range c.tiers {
		if _, ok := t.Remove(key); ok {
			removed = true
		}
	}
	if removed {
		c.reportEntriesLocked()
	}
	return removed
}

// AddLevel appends an empty level at the lowest priority and returns its
// index. On error the cache is unchanged.
func (c *Cache[K, V]) AddLevel(cfg LevelConfig) (int, error) {
	kind, err := policy.ParseKind(cfg.Policy)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnsupportedPolicy, err)
	}
	lvl, err := level.New[K, V](cfg.Capacity, kind)
	if err != nil {
		if errors.Is(err, level.ErrInvalidCapacity) {
			return 0, fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
		}
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	c.tiers = append(c.tiers, &tier[K, V]{Level: lvl})
	index := len(c.tiers) - 1
	c.stats.SetGauge(stats.MetricLevels, int64(len(c.tiers)))
	c.logger.Debug("level added",
		zap.Int("index", index),
		zap.Int("capacity", cfg.Capacity),
		zap.String("policy", string(kind)),
	)
	return index, nil
}

// RemoveLevel discards the level at index together with its entries and
// policy state; nothing migrates to other levels. Later levels move up one
// position. An out-of-range index returns ErrInvalidLevelIndex.
func (c *Cache[K, V]) RemoveLevel(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(c.tiers) {
		return fmt.Errorf("%w: %d (have %d levels)", ErrInvalidLevelIndex, index, len(c.tiers))
	}

	dropped := c.tiers[index].Len()
	c.tiers = slices.Delete(c.tiers, index, index+1)

	c.stats.SetGauge(stats.MetricLevels, int64(len(c.tiers)))
	c.reportEntriesLocked()
	c.logger.Debug("level removed",
		zap.Int("index", index),
		zap.Int("droppedEntries", dropped),
	)
	return nil
}

// Levels returns the number of levels.
func (c *Cache[K, V]) Levels() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tiers)
}

// Display returns a snapshot of every level in priority order. It does not
// count as an access.
func (c *Cache[K, V]) Display() []LevelSnapshot[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LevelSnapshot[K, V], len(c.tiers))
	for i, t := range c.tiers {
		snap := t.Snapshot()
		entries := make([]Entry[K, V], len(snap))
		for j, e := range snap {
			entries[j] = Entry[K, V]{Key: e.Key, Value: e.Value}
		}
		out[i] = LevelSnapshot[K, V]{
			Index:    i,
			Capacity: t.Capacity(),
			Policy:   string(t.Kind()),
			Entries:  entries,
		}
	}
	return out
}

// Verify checks every level's capacity bound and policy/entry consistency.
func (c *Cache[K, V]) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.tiers {
		if err := t.Verify(); err != nil {
			return fmt.Errorf("%w: level %d: %w", ErrInconsistent, i, err)
		}
	}
	return nil
}

// Close drops every level and closes the backing store if it implements
// io.Closer. After Close, the cache should not be used.
func (c *Cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.tiers = nil
	c.mu.Unlock()

	if closer, ok := c.fetcher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("closing backing store: %w", err)
		}
	}
	return nil
}

// lookup searches the levels and promotes a hit to level 0.
func (c *Cache[K, V]) lookup(key K) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if c.closed {
		return zero, false, ErrClosed
	}

	v, index, found := c.findLocked(key)
	if !found {
		return zero, false, nil
	}

	c.hits++
	c.tiers[index].hits++
	c.stats.IncCounter(stats.MetricHits, 1)
	c.stats.ObserveHistogram(stats.MetricHitLevel, float64(index))

	if err := c.promoteLocked(key, v, index); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// findLocked returns the value and level index of the highest level
// holding key. The hit counts as an access at that level.
func (c *Cache[K, V]) findLocked(key K) (V, int, bool) {
	for i, t := range c.tiers {
		if v, ok := t.Get(key); ok {
			return v, i, true
		}
	}
	var zero V
	return zero, -1, false
}

// promoteLocked moves key from level from up to level 0, one level at a
// time.
func (c *Cache[K, V]) promoteLocked(key K, value V, from int) error {
	if from == 0 {
		return nil
	}

	for j := from; j > 0; j-- {
		c.tiers[j].Remove(key)
		if err := c.placeLocked(j-1, key, value); err != nil {
			// Level j has room again, so putting the key back cannot evict.
			if _, restoreErr := c.tiers[j].Put(key, value); restoreErr != nil {
				err = errors.Join(err, restoreErr)
			}
			c.logger.Error("promotion failed",
				zap.Any("key", key),
				zap.Int("from", j),
				zap.Int("to", j-1),
				zap.Error(err),
			)
			return fmt.Errorf("%w: promoting into level %d: %w", ErrInconsistent, j-1, err)
		}
	}

	c.promotions.Add(1)
	c.stats.IncCounter(stats.MetricPromotions, 1)
	if ce := c.logger.Check(zapcore.DebugLevel, "promoted"); ce != nil {
		ce.Write(zap.Any("key", key), zap.Int("from", from))
	}
	return nil
}

// putLocked inserts into level 0.
func (c *Cache[K, V]) putLocked(key K, value V) error {
	if len(c.tiers) == 0 {
		return nil
	}

	if err := c.placeLocked(0, key, value); err != nil {
		c.logger.Error("put failed", zap.Any("key", key), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	c.reportEntriesLocked()
	return nil
}

// placeLocked puts key into level index. The victim of a full level leaves
// the cache, or with demotion enabled moves into the next level down.
func (c *Cache[K, V]) placeLocked(index int, key K, value V) error {
	for ; index < len(c.tiers); index++ {
		ev, err := c.tiers[index].Put(key, value)
		if err != nil {
			return fmt.Errorf("inserting into level %d: %w", index, err)
		}
		if !ev.Evicted {
			return nil
		}

		c.tiers[index].evictions++
		if !c.demote || index+1 == len(c.tiers) {
			c.evictions++
			c.stats.IncCounter(stats.MetricEvictions, 1)
			if ce := c.logger.Check(zapcore.DebugLevel, "evicted"); ce != nil {
				ce.Write(zap.Any("key", ev.Key), zap.Int("level", index))
			}
			return nil
		}

		c.demotions++
		c.stats.IncCounter(stats.MetricDemotions, 1)
		if ce := c.logger.Check(zapcore.DebugLevel, "demoted"); ce != nil {
			ce.Write(zap.Any("key", ev.Key), zap.Int("from", index))
		}
		key, value = ev.Key, ev.Value
	}
	return nil
}

// load serves a full miss from the backing store. The store is called
// without holding the lock; concurrent misses for the same key share one
// call.
func (c *Cache[K, V]) load(ctx context.Context, key K) (V, error) {
	var zero V
	if c.fetcher == nil {
		return zero, fmt.Errorf("%w: %v", ErrNotFound, key)
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	// The fetch is shared by every caller missing on key, so it must not
	// be cut short by one of them giving up. Each caller waits on its own
	// context instead.
	ch := c.flights.DoChan(flightKey(key), func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), key)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	fetched, _ := res.Val.(V)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return zero, ErrClosed
	}

	// Another caller may have stored the key while the lock was released.
	// What is resident now is at least as fresh as what was fetched.
	if v, index, found := c.findLocked(key); found {
		if err := c.promoteLocked(key, v, index); err != nil {
			return zero, err
		}
		return v, nil
	}

	if err := c.putLocked(key, fetched); err != nil {
		return zero, err
	}
	return fetched, nil
}

// fetch calls the backing store once and records the outcome.
func (c *Cache[K, V]) fetch(ctx context.Context, key K) (V, error) {
	c.fetches.Add(1)
	c.stats.IncCounter(stats.MetricFetches, 1)

	start := time.Now()
	v, err := c.fetcher.Fetch(ctx, key)
	c.stats.ObserveHistogram(stats.MetricFetchDuration, time.Since(start).Seconds())

	if err != nil {
		c.fetchErrors.Add(1)
		c.stats.IncCounter(stats.MetricFetchErrors, 1)
		c.logger.Warn("fetch failed", zap.Any("key", key), zap.Error(err))
		return v, fmt.Errorf("%w for key %v: %w", ErrFetch, key, err)
	}
	return v, nil
}

func (c *Cache[K, V]) reportEntriesLocked() {
	total := 0
	for _, t := range c.tiers {
		total += t.Len()
	}
	c.stats.SetGauge(stats.MetricEntries, int64(total))
}

// flightKey maps a key to a singleflight group key. The type is included
// so keys of different dynamic types never share a flight.
func flightKey[K comparable](key K) string {
	return fmt.Sprintf("%T:%#v", key, key)
}
