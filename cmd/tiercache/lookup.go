package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/discochess/tiercache"
	promstats "github.com/discochess/tiercache/internal/stats/prometheus"
)

var (
	lookupRepeat int
	showLayout   bool
	showMetrics  bool
	showTiming   bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup KEY...",
	Short: "Read keys from a backing store through the cache",
	Long: `Build the level stack, then read each key through the cache. Keys missing
from every level are fetched from the backing store given by --data-dir.

Examples:
  # Read two keys three times each and show where they ended up
  tiercache lookup -l 1:LRU -l 4:LFU --repeat 3 --layout key-000001 key-000002

  # Read from a bucket and dump Prometheus metrics
  tiercache lookup --data-dir gs://my-bucket/cache --metrics key-000001`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().IntVar(&lookupRepeat, "repeat", 1, "read the key list this many times")
	lookupCmd.Flags().BoolVar(&showLayout, "layout", false, "print the level layout after the reads")
	lookupCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print Prometheus metrics after the reads")
	lookupCmd.Flags().BoolVar(&showTiming, "timing", false, "show per-read timing")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := levelConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	opts := append(cfg.Options(), tiercache.WithLogger(logger))
	reg := prometheus.NewRegistry()
	if showMetrics {
		opts = append(opts, tiercache.WithStats(promstats.New(reg)))
	}

	c, err := tiercache.New[string, []byte](tiercache.NewStoreFetcher(st), opts...)
	if err != nil {
		st.Close()
		return fmt.Errorf("creating cache: %w", err)
	}
	defer c.Close()

	for round := 0; round < lookupRepeat; round++ {
		for _, key := range args {
			start := time.Now()
			value, err := c.Get(ctx, key)
			elapsed := time.Since(start)
			if err != nil {
				if errors.Is(err, tiercache.ErrNotFound) {
					fmt.Printf("%s: not found\n", key)
					continue
				}
				return fmt.Errorf("lookup %q failed: %w", key, err)
			}
			if showTiming {
				fmt.Printf("%s: %d bytes (%s)\n", key, len(value), elapsed)
			} else {
				fmt.Printf("%s: %s\n", key, value)
			}
		}
	}

	printStats(os.Stdout, c.Stats())
	if showLayout {
		fmt.Println("Layout:")
		printLayout(c.Display())
	}
	if showMetrics {
		families, err := reg.Gather()
		if err != nil {
			return fmt.Errorf("gathering metrics: %w", err)
		}
		printMetrics(os.Stdout, families)
	}
	return nil
}

func printStats(w io.Writer, s tiercache.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Lookups:   %d\n", s.Lookups)
	fmt.Fprintf(w, "Hit rate:  %.1f%%\n", s.HitRate())
	for _, lvl := range s.Levels {
		fmt.Fprintf(w, "  L%d %s %d/%d entries, %d hits (%.1f%%), %d evictions\n",
			lvl.Index, lvl.Policy, lvl.Entries, lvl.Capacity, lvl.Hits, s.LevelHitRate(lvl.Index), lvl.Evictions)
	}
	fmt.Fprintf(w, "Fetches:   %d (%d failed)\n", s.Fetches, s.FetchErrors)
}

// printMetrics writes one line per counter or gauge and a count/sum line
// per histogram.
func printMetrics(w io.Writer, families []*dto.MetricFamily) {
	fmt.Fprintln(w, "Metrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "  %s %g\n", mf.GetName(), m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(w, "  %s %g\n", mf.GetName(), m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, "  %s count=%d sum=%g\n", mf.GetName(), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}
