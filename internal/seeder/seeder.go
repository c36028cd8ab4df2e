// Package seeder fills a data directory with objects for a tiercache
// backing store and optionally uploads it to Google Cloud Storage.
package seeder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/tiercache/benchmark/workload"
	"github.com/discochess/tiercache/internal/codec"
	"github.com/discochess/tiercache/internal/codec/zstdcodec"
	"github.com/discochess/tiercache/internal/store/diskstore"
)

// Record is one object to store.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Seeder writes objects into a data directory.
type Seeder struct {
	dir       string
	codec     codec.Codec
	codecName string
	workers   int
	progress  ProgressFunc
	logger    *zap.Logger

	mu sync.Mutex // serializes progress callbacks
}

// Option configures the Seeder.
type Option func(*Seeder)

// WithDir sets the data directory. It is created if needed.
func WithDir(dir string) Option {
	return func(s *Seeder) { s.dir = dir }
}

// WithCodec sets the object codec and the name recorded in the manifest.
func WithCodec(name string, c codec.Codec) Option {
	return func(s *Seeder) {
		s.codecName = name
		s.codec = c
	}
}

// WithWorkers sets the number of parallel object writers.
func WithWorkers(n int) Option {
	return func(s *Seeder) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Seeder) { s.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

// New creates a new Seeder with the given options.
func New(opts ...Option) *Seeder {
	s := &Seeder{
		dir:       "./data",
		codec:     zstdcodec.New(),
		codecName: "zstd",
		workers:   4,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate writes count objects named like workload.Name, each size bytes
// long and starting with its key.
func (s *Seeder) Generate(ctx context.Context, count, size int) (*Manifest, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	source := fmt.Sprintf("generated:%dx%d", count, size)
	return s.write(ctx, source, int64(count), func(ctx context.Context, out chan<- Record) error {
		for i := 0; i < count; i++ {
			key := workload.Name(i)
			rec := Record{Key: key, Value: Body(key, size)}
			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
}

// SeedFromFile writes the records of a JSONL file, one
// {"key": ..., "value": ...} object per line. Files ending in .zst are
// decompressed. Blank lines are skipped.
func (s *Seeder) SeedFromFile(ctx context.Context, sourcePath string) (*Manifest, error) {
	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if filepath.Ext(sourcePath) == ".zst" {
		decoder, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		reader = decoder
	}

	return s.write(ctx, sourcePath, 0, func(ctx context.Context, out chan<- Record) error {
		return s.readRecords(ctx, reader, out)
	})
}

// readRecords parses JSONL records from r and sends them to out.
func (s *Seeder) readRecords(ctx context.Context, r io.Reader, out chan<- Record) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024) // 10MB max line.

	var recordsRead int64
	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}

		recordsRead++
		if recordsRead%100000 == 0 {
			s.report(Progress{Phase: "read", RecordsRead: recordsRead})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	return nil
}

func parseRecord(line []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, fmt.Errorf("parsing record: %w", err)
	}
	if rec.Key == "" {
		return Record{}, fmt.Errorf("record has no key")
	}
	return rec, nil
}

// write stores every record produced by produce using s.workers writers,
// then writes the manifest. total is only used for progress reports.
func (s *Seeder) write(ctx context.Context, source string, total int64, produce func(context.Context, chan<- Record) error) (*Manifest, error) {
	startTime := time.Now()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	st, err := diskstore.New(s.dir, s.codec)
	if err != nil {
		return nil, fmt.Errorf("opening data directory: %w", err)
	}
	defer st.Close()

	g, gctx := errgroup.WithContext(ctx)
	records := make(chan Record, s.workers*4)

	g.Go(func() error {
		defer close(records)
		return produce(gctx, records)
	})

	var written, bytes atomic.Int64
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for rec := range records {
				if err := st.Write(gctx, rec.Key, []byte(rec.Value)); err != nil {
					return fmt.Errorf("writing %q: %w", rec.Key, err)
				}
				n := written.Add(1)
				b := bytes.Add(int64(len(rec.Value)))
				if n%1000 == 0 {
					s.report(Progress{
						Phase:          "write",
						ObjectsWritten: n,
						ObjectsTotal:   total,
						BytesWritten:   b,
						StartTime:      startTime,
					})
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.report(Progress{Phase: "error", Error: err, StartTime: startTime})
		return nil, err
	}

	s.report(Progress{
		Phase:          "done",
		ObjectsWritten: written.Load(),
		ObjectsTotal:   written.Load(),
		BytesWritten:   bytes.Load(),
		StartTime:      startTime,
	})

	manifest := &Manifest{
		Version:     1,
		ObjectCount: written.Load(),
		Bytes:       bytes.Load(),
		Codec:       s.codecName,
		Source:      source,
		BuiltAt:     time.Now(),
	}
	if err := WriteManifest(s.dir, manifest); err != nil {
		return nil, err
	}

	s.logger.Info("seeded data directory",
		zap.String("dir", s.dir),
		zap.String("source", source),
		zap.Int64("objects", manifest.ObjectCount),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return manifest, nil
}

func (s *Seeder) report(p Progress) {
	if s.progress == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress(p)
}

// Body returns size bytes that start with the key.
func Body(key string, size int) string {
	body := key + ":"
	if len(body) >= size {
		return body[:size]
	}
	return body + strings.Repeat(".", size-len(body))
}
