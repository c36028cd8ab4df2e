// Package prometheus provides a Prometheus-based stats collector.
package prometheus

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/tiercache/internal/stats"
)

// Collector implements stats.Collector using Prometheus metrics.
// Metrics are created and registered lazily on first use.
type Collector struct {
	registry    prometheus.Registerer
	constLabels prometheus.Labels

	mu         sync.RWMutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// Option configures a Collector.
type Option func(*Collector)

// WithConstLabels attaches labels to every metric, e.g. to tell several
// caches in one process apart.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Collector) {
		c.constLabels = labels
	}
}

// help describes the metrics emitted by the cache.
var help = map[string]string{
	stats.MetricLookups:       "Total number of cache lookups.",
	stats.MetricHits:          "Lookups served by a cache level.",
	stats.MetricMisses:        "Lookups that missed every level.",
	stats.MetricHitLevel:      "Index of the level that served a hit.",
	stats.MetricPromotions:    "Entries promoted towards level 0.",
	stats.MetricDemotions:     "Entries demoted to the next level on eviction.",
	stats.MetricEvictions:     "Entries evicted by a level policy.",
	stats.MetricFetches:       "Backing store fetches.",
	stats.MetricFetchErrors:   "Backing store fetches that failed.",
	stats.MetricFetchDuration: "Backing store fetch latency in seconds.",
	stats.MetricLevels:        "Number of configured cache levels.",
	stats.MetricEntries:       "Number of entries resident across all levels.",
}

// buckets holds histogram buckets for metrics that need more than the
// defaults.
var buckets = map[string][]float64{
	stats.MetricHitLevel:      prometheus.LinearBuckets(0, 1, 8),
	stats.MetricFetchDuration: prometheus.ExponentialBuckets(0.0001, 2, 16),
}

// New creates a new Prometheus collector.
// If registry is nil, prometheus.DefaultRegisterer is used.
func New(registry prometheus.Registerer, opts ...Option) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	c := &Collector{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IncCounter increments a counter metric.
func (c *Collector) IncCounter(name string, delta int64) {
	counter := getOrCreate(c, c.counters, name, func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name:        name,
			Help:        helpFor(name),
			ConstLabels: c.constLabels,
		})
	})
	counter.Add(float64(delta))
}

// SetGauge sets a gauge metric.
func (c *Collector) SetGauge(name string, value int64) {
	gauge := getOrCreate(c, c.gauges, name, func() prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        name,
			Help:        helpFor(name),
			ConstLabels: c.constLabels,
		})
	})
	gauge.Set(float64(value))
}

// ObserveHistogram records a value in a histogram.
func (c *Collector) ObserveHistogram(name string, value float64) {
	histogram := getOrCreate(c, c.histograms, name, func() prometheus.Histogram {
		b, ok := buckets[name]
		if !ok {
			b = prometheus.DefBuckets
		}
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        name,
			Help:        helpFor(name),
			ConstLabels: c.constLabels,
			Buckets:     b,
		})
	})
	histogram.Observe(value)
}

// getOrCreate returns the metric cached under name, creating and
// registering it on first use. If an equivalent metric is already
// registered elsewhere, that one is reused.
func getOrCreate[M prometheus.Collector](c *Collector, metrics map[string]M, name string, build func() M) M {
	c.mu.RLock()
	m, ok := metrics[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock.
	if m, ok = metrics[name]; ok {
		return m
	}

	m = build()
	if err := c.registry.Register(m); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(M); ok {
				m = existing
			}
		}
		// Otherwise keep the unregistered metric so callers still work.
	}
	metrics[name] = m
	return m
}

func helpFor(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}
