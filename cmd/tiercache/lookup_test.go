package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/tiercache"
	"github.com/discochess/tiercache/internal/stats"
	promstats "github.com/discochess/tiercache/internal/stats/prometheus"
)

func TestPrintMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := promstats.New(reg)
	c.IncCounter(stats.MetricLookups, 3)
	c.SetGauge(stats.MetricLevels, 2)
	c.ObserveHistogram(stats.MetricHitLevel, 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var buf bytes.Buffer
	printMetrics(&buf, families)
	out := buf.String()

	for _, want := range []string{
		stats.MetricLookups + " 3",
		stats.MetricLevels + " 2",
		stats.MetricHitLevel + " count=1 sum=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printMetrics() output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStats(t *testing.T) {
	s := tiercache.Stats{
		Lookups: 4,
		Hits:    3,
		Misses:  1,
		Levels: []tiercache.LevelStats{
			{Index: 0, Capacity: 2, Policy: "LRU", Entries: 2, Hits: 3},
		},
	}

	var buf bytes.Buffer
	printStats(&buf, s)
	out := buf.String()

	for _, want := range []string{"Hit rate:  75.0%", "L0 LRU 2/2 entries, 3 hits (75.0%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("printStats() output missing %q:\n%s", want, out)
		}
	}
}
