// Package memorytiercachefx provides an fx module for a tiered cache over an
// in-memory store. Useful for testing.
package memorytiercachefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/tiercache"
	"github.com/discochess/tiercache/internal/stats"
	"github.com/discochess/tiercache/internal/stats/logger"
	"github.com/discochess/tiercache/internal/store/memstore"
)

// DefaultLevels is used when no Config is supplied.
var DefaultLevels = []tiercache.LevelConfig{
	{Capacity: 64, Policy: "LRU"},
	{Capacity: 256, Policy: "LFU"},
}

// Config holds the level stack. It is optional.
type Config struct {
	Levels   []tiercache.LevelConfig
	Demotion bool
}

// Module provides an in-memory backed cache for testing.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("memorytiercache",
	fx.Provide(
		newStatsCollector,
		newCache,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("tiercache.stats"))
}

// Params holds dependencies for creating the cache.
type Params struct {
	fx.In

	Config    *Config `optional:"true"`
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided cache and store.
type Result struct {
	fx.Out

	Cache *tiercache.Cache[string, []byte]
	Store *memstore.Store // Exposed for test setup
}

func newCache(p Params) (Result, error) {
	cfg := tiercache.Config{Levels: DefaultLevels}
	if p.Config != nil {
		cfg = tiercache.Config{Levels: p.Config.Levels, Demotion: p.Config.Demotion}
	}

	opts := append(cfg.Options(),
		tiercache.WithStats(p.Collector),
		tiercache.WithLogger(p.Logger.Named("tiercache")),
	)
	st := memstore.New()
	cache, err := tiercache.New[string, []byte](tiercache.NewStoreFetcher(st), opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return cache.Close()
		},
	})

	return Result{
		Cache: cache,
		Store: st,
	}, nil
}
