package micro

import (
	"context"
	"fmt"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/discochess/tiercache"
	"github.com/discochess/tiercache/benchmark/workload"
	"github.com/discochess/tiercache/internal/codec"
	"github.com/discochess/tiercache/internal/codec/zstdcodec"
	"github.com/discochess/tiercache/internal/store/diskstore"
)

func newCache(b *testing.B, opts ...tiercache.Option) *tiercache.Cache[int, int] {
	b.Helper()
	fetcher := tiercache.FetcherFunc[int, int](func(ctx context.Context, key int) (int, error) {
		return key, nil
	})
	c, err := tiercache.New[int, int](fetcher, opts...)
	if err != nil {
		b.Fatalf("creating cache: %v", err)
	}
	b.Cleanup(func() { c.Close() })
	return c
}

// BenchmarkGet_LevelZeroHit measures the hit path without promotion.
func BenchmarkGet_LevelZeroHit(b *testing.B) {
	c := newCache(b, tiercache.WithLevels(tiercache.LevelConfig{Capacity: 1024, Policy: "LRU"}))
	ctx := context.Background()
	if _, err := c.Get(ctx, 1); err != nil {
		b.Fatalf("warming cache: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Get(ctx, 1); err != nil {
			b.Fatalf("get error: %v", err)
		}
	}
}

// BenchmarkGet_Policies replays a zipf workload through single-level
// stacks of each policy.
func BenchmarkGet_Policies(b *testing.B) {
	keys, err := workload.Zipf(1<<16, 1<<14, 0.99, 1)
	if err != nil {
		b.Fatalf("generating workload: %v", err)
	}

	for _, pol := range []string{"LRU", "LFU"} {
		b.Run(pol, func(b *testing.B) {
			c := newCache(b, tiercache.WithLevels(tiercache.LevelConfig{Capacity: 1024, Policy: pol}))
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.Get(ctx, keys[i%len(keys)]); err != nil {
					b.Fatalf("get error: %v", err)
				}
			}
			b.ReportMetric(c.Stats().HitRate(), "hit%")
		})
	}
}

// BenchmarkGet_Promotion measures hits that promote through every level.
func BenchmarkGet_Promotion(b *testing.B) {
	for _, depth := range []int{2, 4, 8} {
		b.Run(fmt.Sprintf("levels=%d", depth), func(b *testing.B) {
			levels := make([]tiercache.LevelConfig, depth)
			for i := range levels {
				levels[i] = tiercache.LevelConfig{Capacity: 1, Policy: "LRU"}
			}
			c := newCache(b, tiercache.WithDemotion(), tiercache.WithLevels(levels...))
			ctx := context.Background()

			// Cycling through depth keys keeps each one a level deeper
			// than the last.
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.Get(ctx, i%depth); err != nil {
					b.Fatalf("get error: %v", err)
				}
			}
			b.ReportMetric(float64(c.Stats().Promotions)/float64(b.N), "promotions/op")
		})
	}
}

// BenchmarkGet_Parallel measures contention on the cache lock.
func BenchmarkGet_Parallel(b *testing.B) {
	keys, err := workload.Zipf(1<<16, 1<<12, 0.9, 2)
	if err != nil {
		b.Fatalf("generating workload: %v", err)
	}
	c := newCache(b, tiercache.WithLevels(
		tiercache.LevelConfig{Capacity: 256, Policy: "LRU"},
		tiercache.LevelConfig{Capacity: 1024, Policy: "LFU"},
	))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		i := 0
		for pb.Next() {
			if _, err := c.Get(ctx, keys[i%len(keys)]); err != nil {
				b.Errorf("get error: %v", err)
				return
			}
			i++
		}
	})
}

// BenchmarkGet_DiskStore measures full misses served by a zstd disk store.
func BenchmarkGet_DiskStore(b *testing.B) {
	dir := b.TempDir()
	st, err := diskstore.New(dir, zstdcodec.New())
	if err != nil {
		b.Fatalf("creating store: %v", err)
	}
	ctx := context.Background()
	names := workload.Names(workload.Scan(256, 256))
	value := make([]byte, 4096)
	for _, name := range names {
		if err := st.Write(ctx, name, value); err != nil {
			b.Fatalf("seeding store: %v", err)
		}
	}

	c, err := tiercache.New[string, []byte](tiercache.NewStoreFetcher(st),
		tiercache.WithLevels(tiercache.LevelConfig{Capacity: 16, Policy: "LRU"}))
	if err != nil {
		b.Fatalf("creating cache: %v", err)
	}
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Get(ctx, names[i%len(names)]); err != nil {
			b.Fatalf("get error: %v", err)
		}
	}
}

// BenchmarkZstdDecode measures the decode cost of one stored object.
func BenchmarkZstdDecode(b *testing.B) {
	encoded, err := codec.Encode(zstdcodec.New(zstdcodec.WithLevel(zstd.SpeedBetterCompression)), make([]byte, 4096))
	if err != nil {
		b.Fatalf("encoding: %v", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		b.Fatalf("creating decoder: %v", err)
	}
	defer decoder.Close()

	b.SetBytes(4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decoder.DecodeAll(encoded, nil); err != nil {
			b.Fatalf("decode error: %v", err)
		}
	}
}

// TestMicroBenchmarksCompile ensures the benchmark file compiles.
func TestMicroBenchmarksCompile(t *testing.T) {
	t.Log("micro benchmarks compiled successfully")
}
