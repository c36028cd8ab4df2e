package tiercache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/discochess/tiercache/internal/stats"
)

// Option configures a Cache.
type Option interface {
	apply(*options)
}

// options holds the cache configuration.
type options struct {
	levels []LevelConfig
	demote bool
	stats  stats.Collector
	logger *zap.Logger
}

// defaultOptions returns the default configuration: no levels, no metrics
// and no logging.
func defaultOptions() options {
	return options{
		stats:  stats.Discard,
		logger: zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithLevels appends levels in priority order, level 0 first.
// It may be given more than once.
func WithLevels(levels ...LevelConfig) Option {
	return optionFunc(func(o *options) {
		o.levels = append(o.levels, levels...)
	})
}

// WithDemotion makes a level pass its eviction victims to the next level
// down instead of dropping them. Victims of the last level still leave the
// cache.
func WithDemotion() Option {
	return optionFunc(func(o *options) {
		o.demote = true
	})
}

// WithStats sets the stats collector.
// If not set, or set to nil, metrics are discarded.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		if c == nil {
			c = stats.Discard
		}
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithConfigFile configures the levels and demotion from a YAML file.
func WithConfigFile(path string) (Option, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	opts := cfg.Options()
	return optionFunc(func(o *options) {
		for _, opt := range opts {
			opt.apply(o)
		}
	}), nil
}
