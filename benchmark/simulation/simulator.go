// Package simulation replays key access sequences through tiered caches.
package simulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/tiercache"
)

// Scenario names a level stack to evaluate.
type Scenario struct {
	Name   string
	Config tiercache.Config
}

// Simulator replays workloads through one fresh cache per scenario.
type Simulator struct {
	scenarios  []Scenario
	window     int
	fetchDelay time.Duration
	logger     *zap.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithWindow sets the number of requests per hit-rate sample.
// Default is 1000.
func WithWindow(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithFetchDelay makes every backing store fetch sleep for d.
func WithFetchDelay(d time.Duration) Option {
	return func(s *Simulator) {
		s.fetchDelay = d
	}
}

// WithLogger sets the logger handed to every simulated cache.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// NewSimulator creates a Simulator for the given scenarios.
func NewSimulator(scenarios []Scenario, opts ...Option) *Simulator {
	s := &Simulator{
		scenarios: scenarios,
		window:    1000,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run replays keys through every scenario and returns the results keyed by
// scenario name.
func (s *Simulator) Run(ctx context.Context, keys []int) (map[string]*Result, error) {
	results := make(map[string]*Result, len(s.scenarios))
	for _, sc := range s.scenarios {
		res, err := s.runScenario(ctx, sc, keys)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		results[sc.Name] = res
	}
	return results, nil
}

func (s *Simulator) runScenario(ctx context.Context, sc Scenario, keys []int) (*Result, error) {
	var fetches int
	fetcher := tiercache.FetcherFunc[int, int](func(ctx context.Context, key int) (int, error) {
		fetches++
		if s.fetchDelay > 0 {
			time.Sleep(s.fetchDelay)
		}
		return key * 2, nil
	})

	opts := append(sc.Config.Options(), tiercache.WithLogger(s.logger.Named(sc.Name)))
	cache, err := tiercache.New[int, int](fetcher, opts...)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	res := &Result{
		Scenario:       sc.Name,
		Requests:       len(keys),
		KeyHits:        make(map[int]int),
		Latencies:      make([]float64, 0, len(keys)),
		WindowHitRates: make([]float64, 0, len(keys)/s.window+1),
	}

	start := time.Now()
	windowHits, windowLen := 0, 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := fetches
		t0 := time.Now()
		if _, err := cache.Get(ctx, key); err != nil {
			return nil, err
		}
		res.Latencies = append(res.Latencies, float64(time.Since(t0).Nanoseconds())/1e3)
		res.KeyHits[key]++

		if fetches == before {
			windowHits++
		}
		windowLen++
		if windowLen == s.window {
			res.WindowHitRates = append(res.WindowHitRates, float64(windowHits)/float64(windowLen)*100)
			windowHits, windowLen = 0, 0
		}
	}
	if windowLen > 0 {
		res.WindowHitRates = append(res.WindowHitRates, float64(windowHits)/float64(windowLen)*100)
	}
	res.Elapsed = time.Since(start)

	if err := cache.Verify(); err != nil {
		return nil, err
	}
	res.Stats = cache.Stats()

	s.logger.Debug("scenario finished",
		zap.String("scenario", sc.Name),
		zap.Int("requests", res.Requests),
		zap.Float64("hitRate", res.Stats.HitRate()),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Result contains the outcome of replaying a workload through one scenario.
type Result struct {
	Scenario       string
	Requests       int
	Stats          tiercache.Stats
	KeyHits        map[int]int // Key -> request count.
	Latencies      []float64   // Per-request latency in microseconds.
	WindowHitRates []float64   // Hit rate percentage per window of requests.
	Elapsed        time.Duration
}

// HitRate returns the overall hit rate as a percentage.
func (r *Result) HitRate() float64 {
	return r.Stats.HitRate()
}
