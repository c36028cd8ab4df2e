package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/discochess/tiercache/internal/codec"
	"github.com/discochess/tiercache/internal/codec/gzipcodec"
	"github.com/discochess/tiercache/internal/codec/noopcodec"
	"github.com/discochess/tiercache/internal/codec/zstdcodec"
	"github.com/discochess/tiercache/internal/seeder"
	"github.com/discochess/tiercache/internal/store"
	"github.com/discochess/tiercache/internal/store/diskstore"
	"github.com/discochess/tiercache/internal/store/gcsstore"
	"github.com/discochess/tiercache/internal/store/s3store"
)

var (
	dataDir    string
	codecName  string
	s3Region   string
	s3Endpoint string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "./data", "backing store: a directory, gs://bucket/prefix or s3://bucket/prefix")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", "zstd", "object encoding: zstd, gzip[:level], none")
	rootCmd.PersistentFlags().StringVar(&s3Region, "s3-region", "", "AWS region for s3:// stores")
	rootCmd.PersistentFlags().StringVar(&s3Endpoint, "s3-endpoint", "", "custom endpoint for S3-compatible services")
}

// location is a parsed --data-dir value.
type location struct {
	scheme string // "", "gs" or "s3"
	bucket string
	prefix string
	path   string
}

// parseLocation splits a --data-dir value into a local path or a bucket
// and key prefix.
func parseLocation(s string) (location, error) {
	if !strings.Contains(s, "://") {
		if s == "" {
			return location{}, fmt.Errorf("empty data location")
		}
		return location{path: s}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return location{}, fmt.Errorf("parsing data location: %w", err)
	}
	switch u.Scheme {
	case "gs", "s3":
	default:
		return location{}, fmt.Errorf("unsupported data location scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return location{}, fmt.Errorf("data location %q has no bucket", s)
	}
	return location{
		scheme: u.Scheme,
		bucket: u.Host,
		prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// newCodec returns the codec named by --codec. gzip takes an optional
// compression level, as in "gzip:9".
func newCodec(name string) (codec.Codec, error) {
	base, level, hasLevel := strings.Cut(strings.ToLower(name), ":")
	if hasLevel && base != "gzip" {
		return nil, fmt.Errorf("codec %s does not take a level", base)
	}
	switch base {
	case "zstd":
		return zstdcodec.New(), nil
	case "gzip":
		if !hasLevel {
			return gzipcodec.New(), nil
		}
		n, err := strconv.Atoi(level)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip level %q: %w", level, err)
		}
		c, err := gzipcodec.NewLevel(n)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip level %d: %w", n, err)
		}
		return c, nil
	case "none", "":
		return noopcodec.New(), nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}

// openStore opens the backing store named by --data-dir and --codec. For a
// local directory seeded by 'tiercache seed', the manifest's codec is used
// unless --codec is given explicitly.
func openStore(ctx context.Context) (store.Store, error) {
	loc, err := parseLocation(dataDir)
	if err != nil {
		return nil, err
	}
	name := codecName
	if loc.scheme == "" && !rootCmd.PersistentFlags().Changed("codec") {
		if m, err := seeder.ReadManifest(loc.path); err == nil {
			name = m.Codec
		}
	}
	c, err := newCodec(name)
	if err != nil {
		return nil, err
	}

	switch loc.scheme {
	case "gs":
		st, err := gcsstore.New(ctx, loc.bucket, c, gcsstore.WithPrefix(loc.prefix))
		if err != nil {
			return nil, err
		}
		return st, nil
	case "s3":
		opts := []s3store.Option{s3store.WithPrefix(loc.prefix)}
		if s3Region != "" {
			opts = append(opts, s3store.WithRegion(s3Region))
		}
		if s3Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(s3Endpoint))
		}
		st, err := s3store.New(ctx, loc.bucket, c, opts...)
		if err != nil {
			return nil, err
		}
		return st, nil
	}

	if _, err := os.Stat(loc.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("data directory %q does not exist; run 'tiercache seed' first", loc.path)
	}
	st, err := diskstore.New(loc.path, c)
	if err != nil {
		return nil, fmt.Errorf("opening data directory: %w", err)
	}
	return st, nil
}
