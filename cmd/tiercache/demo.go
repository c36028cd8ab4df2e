package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/tiercache"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted walk through levels, promotion and eviction",
	Long: `Run a fixed sequence of AddLevel, Put, Get and RemoveLevel calls against
a small two-level cache and print the layout of every level after each step.

Misses are served by an in-memory backing store holding the keys A through F.
With --demote, entries evicted from a level move down one level instead of
leaving the cache.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// demoBacking is the backing store used by the demo.
var demoBacking = map[string]int{"A": 1, "B": 2, "C": 3, "D": 4, "E": 5, "F": 6}

func runDemo(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	fetcher := tiercache.FetcherFunc[string, int](func(ctx context.Context, key string) (int, error) {
		v, ok := demoBacking[key]
		if !ok {
			return 0, tiercache.ErrNotFound
		}
		return v, nil
	})

	opts := []tiercache.Option{tiercache.WithLogger(logger)}
	if demote {
		opts = append(opts, tiercache.WithDemotion())
	}
	c, err := tiercache.New[string, int](fetcher, opts...)
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}
	defer c.Close()

	ctx := cmd.Context()

	step := func(format string, a ...any) {
		fmt.Printf("> "+format+"\n", a...)
		printLayout(c.Display())
	}

	for _, lc := range []tiercache.LevelConfig{{Capacity: 2, Policy: "LRU"}, {Capacity: 3, Policy: "LFU"}} {
		idx, err := c.AddLevel(lc)
		if err != nil {
			return err
		}
		step("add level %d (%s)", idx, lc)
	}

	for _, k := range []string{"A", "B", "C"} {
		if err := c.Put(k, demoBacking[k]); err != nil {
			return err
		}
		step("put %s=%d", k, demoBacking[k])
	}

	for _, k := range []string{"A", "B", "A", "D", "Z"} {
		v, err := c.Get(ctx, k)
		if err != nil {
			fmt.Printf("> get %s: %v\n", k, err)
			continue
		}
		step("get %s = %d", k, v)
	}

	if err := c.RemoveLevel(0); err != nil {
		return err
	}
	step("remove level 0")

	if err := c.Put("E", demoBacking["E"]); err != nil {
		return err
	}
	step("put E=%d", demoBacking["E"])

	if err := c.Verify(); err != nil {
		return err
	}

	s := c.Stats()
	fmt.Println()
	fmt.Printf("Lookups:    %d\n", s.Lookups)
	fmt.Printf("Hits:       %d (%.1f%%)\n", s.Hits, s.HitRate())
	fmt.Printf("Misses:     %d\n", s.Misses)
	fmt.Printf("Promotions: %d\n", s.Promotions)
	fmt.Printf("Demotions:  %d\n", s.Demotions)
	fmt.Printf("Evictions:  %d\n", s.Evictions)
	fmt.Printf("Fetches:    %d (%d failed)\n", s.Fetches, s.FetchErrors)
	return nil
}
