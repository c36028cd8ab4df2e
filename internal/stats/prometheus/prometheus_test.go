package prometheus

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/discochess/tiercache/internal/stats"
)

// family gathers reg and returns the metric family called name, or nil.
func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, m := range metrics {
		if m.GetName() == name {
			return m
		}
	}
	return nil
}

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c.registry == nil {
		t.Error("registry should not be nil")
	}
}

func TestNew_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	if c.registry != reg {
		t.Error("registry should be the custom registry")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricPromotions, 5)
	c.IncCounter(stats.MetricPromotions, 3)

	m := family(t, reg, stats.MetricPromotions)
	if m == nil {
		t.Fatalf("%s not found in registry", stats.MetricPromotions)
	}
	if got := m.GetMetric()[0].GetCounter().GetValue(); got != 8 {
		t.Errorf("counter value = %v, want 8", got)
	}
	if m.GetHelp() != help[stats.MetricPromotions] {
		t.Errorf("help = %q, want %q", m.GetHelp(), help[stats.MetricPromotions])
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge(stats.MetricEntries, 42)
	c.SetGauge(stats.MetricEntries, 7)

	m := family(t, reg, stats.MetricEntries)
	if m == nil {
		t.Fatalf("%s not found in registry", stats.MetricEntries)
	}
	if got := m.GetMetric()[0].GetGauge().GetValue(); got != 7 {
		t.Errorf("gauge value = %v, want 7", got)
	}
}

func TestCollector_ObserveHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram(stats.MetricHitLevel, 0)
	c.ObserveHistogram(stats.MetricHitLevel, 1)
	c.ObserveHistogram(stats.MetricHitLevel, 2)

	m := family(t, reg, stats.MetricHitLevel)
	if m == nil {
		t.Fatalf("%s not found in registry", stats.MetricHitLevel)
	}
	h := m.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 3 {
		t.Errorf("histogram count = %v, want 3", h.GetSampleCount())
	}
	if got, want := len(h.GetBucket()), len(buckets[stats.MetricHitLevel]); got != want {
		t.Errorf("histogram has %d buckets, want %d", got, want)
	}
}

func TestCollector_UnknownNameUsesDefaults(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram("custom_histogram", 0.5)

	m := family(t, reg, "custom_histogram")
	if m == nil {
		t.Fatal("custom_histogram not found in registry")
	}
	if m.GetHelp() != "custom_histogram" {
		t.Errorf("help = %q, want metric name", m.GetHelp())
	}
	if got := len(m.GetMetric()[0].GetHistogram().GetBucket()); got != len(prometheus.DefBuckets) {
		t.Errorf("histogram has %d buckets, want %d", got, len(prometheus.DefBuckets))
	}
}

func TestCollector_ConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, WithConstLabels(prometheus.Labels{"cache": "sessions"}))

	c.IncCounter(stats.MetricHits, 1)

	m := family(t, reg, stats.MetricHits)
	if m == nil {
		t.Fatalf("%s not found in registry", stats.MetricHits)
	}
	labels := m.GetMetric()[0].GetLabel()
	if len(labels) != 1 || labels[0].GetName() != "cache" || labels[0].GetValue() != "sessions" {
		t.Errorf("labels = %v, want cache=sessions", labels)
	}
}

func TestCollector_ReuseMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter("reuse_test", 1)
	c.IncCounter("reuse_test", 1)
	c.IncCounter("reuse_test", 1)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	count := 0
	for _, m := range metrics {
		if m.GetName() == "reuse_test" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 metric named reuse_test, got %d", count)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncCounter(stats.MetricLookups, 1)
				c.SetGauge(stats.MetricLevels, int64(j))
				c.ObserveHistogram(stats.MetricFetchDuration, float64(j)/1000)
			}
		}()
	}
	wg.Wait()

	if m := family(t, reg, stats.MetricLookups); m == nil {
		t.Errorf("%s not found", stats.MetricLookups)
	} else if got := m.GetMetric()[0].GetCounter().GetValue(); got != 1000 {
		t.Errorf("counter value = %v, want 1000", got)
	}
	if m := family(t, reg, stats.MetricLevels); m == nil {
		t.Errorf("%s not found", stats.MetricLevels)
	}
	if m := family(t, reg, stats.MetricFetchDuration); m == nil {
		t.Errorf("%s not found", stats.MetricFetchDuration)
	} else if got := m.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1000 {
		t.Errorf("histogram count = %v, want 1000", got)
	}
}

func TestCollector_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	existing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: stats.MetricEvictions,
		Help: help[stats.MetricEvictions],
	})
	reg.MustRegister(existing)
	existing.Add(100)

	c := New(reg)
	c.IncCounter(stats.MetricEvictions, 5)

	m := family(t, reg, stats.MetricEvictions)
	if m == nil {
		t.Fatalf("%s not found in registry", stats.MetricEvictions)
	}
	if got := m.GetMetric()[0].GetCounter().GetValue(); got != 105 {
		t.Errorf("counter value = %v, want 105", got)
	}
}
