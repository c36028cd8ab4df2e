// Package disktiercachefx provides an fx module for a tiered cache over a
// zstd-compressed disk store.
package disktiercachefx

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/tiercache"
	"github.com/discochess/tiercache/internal/codec/zstdcodec"
	"github.com/discochess/tiercache/internal/stats"
	"github.com/discochess/tiercache/internal/stats/logger"
	"github.com/discochess/tiercache/internal/store/diskstore"
)

// ErrNoDataDir is returned when Config.DataDir is empty.
var ErrNoDataDir = errors.New("disktiercachefx: no data directory")

// Config holds configuration for the disk-backed cache.
type Config struct {
	// DataDir is the directory containing the objects.
	DataDir string

	// ConfigFile is an optional YAML level stack. It takes precedence
	// over Levels.
	ConfigFile string

	// Levels is the level stack, level 0 first.
	// Default is a single 100-entry LRU level.
	Levels []tiercache.LevelConfig

	// Demotion enables tiercache.WithDemotion.
	Demotion bool
}

// Module provides a disk-backed cache.
// Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("disktiercache",
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

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided cache.
type Result struct {
	fx.Out

	Cache *tiercache.Cache[string, []byte]
}

func newCache(p Params) (Result, error) {
	if p.Config.DataDir == "" {
		return Result{}, ErrNoDataDir
	}

	cfg := tiercache.Config{Levels: p.Config.Levels, Demotion: p.Config.Demotion}
	if p.Config.ConfigFile != "" {
		loaded, err := tiercache.LoadConfig(p.Config.ConfigFile)
		if err != nil {
			return Result{}, err
		}
		cfg = loaded
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = []tiercache.LevelConfig{{Capacity: 100, Policy: "LRU"}}
	}

	st, err := diskstore.New(p.Config.DataDir, zstdcodec.New())
	if err != nil {
		return Result{}, fmt.Errorf("creating store: %w", err)
	}

	opts := append(cfg.Options(),
		tiercache.WithStats(p.Collector),
		tiercache.WithLogger(p.Logger.Named("tiercache")),
	)
	cache, err := tiercache.New[string, []byte](tiercache.NewStoreFetcher(st), opts...)
	if err != nil {
		st.Close()
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return cache.Close()
		},
	})

	return Result{Cache: cache}, nil
}
