package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/discochess/tiercache/internal/seeder"
)

var (
	seedCount   int
	seedSize    int
	seedFrom    string
	seedWorkers int
	seedUpload  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write objects into a local data directory",
	Long: `Write objects into the data directory, encoded with --codec, and record
a manifest.json next to them. The directory is created if needed.

Objects are either generated (key-000000, key-000001, ...) or read from a
JSONL file with one {"key": ..., "value": ...} object per line. Files ending
in .zst are decompressed.

Examples:
  # Generate 10K objects of 256 bytes
  tiercache seed --data-dir ./data --count 10000 --size 256

  # Import records and upload the result to GCS
  tiercache seed --from records.jsonl.zst --upload gs://my-bucket/cache`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 1000, "number of objects to generate")
	seedCmd.Flags().IntVar(&seedSize, "size", 128, "generated object size in bytes")
	seedCmd.Flags().StringVar(&seedFrom, "from", "", "JSONL file to import instead of generating objects (supports .zst)")
	seedCmd.Flags().IntVar(&seedWorkers, "workers", 4, "number of parallel writers")
	seedCmd.Flags().StringVar(&seedUpload, "upload", "", "GCS destination (gs://bucket/prefix) to upload to after seeding")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := parseLocation(dataDir)
	if err != nil {
		return err
	}
	if loc.scheme != "" {
		return fmt.Errorf("seed writes to a local directory, got %s://; use --upload", loc.scheme)
	}
	c, err := newCodec(codecName)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	opts := []seeder.Option{
		seeder.WithDir(loc.path),
		seeder.WithCodec(codecName, c),
		seeder.WithWorkers(seedWorkers),
		seeder.WithLogger(logger),
	}
	if verbose {
		opts = append(opts, seeder.WithProgress(seeder.NewPrinter(os.Stderr)))
	}
	s := seeder.New(opts...)

	var m *seeder.Manifest
	if seedFrom != "" {
		m, err = s.SeedFromFile(ctx, seedFrom)
	} else {
		m, err = s.Generate(ctx, seedCount, seedSize)
	}
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	fmt.Printf("Wrote %d objects (%s) to %s\n", m.ObjectCount, seeder.FormatBytes(m.Bytes), loc.path)

	if seedUpload == "" {
		return nil
	}
	uploader, err := seeder.NewGCSUploader(ctx, seedUpload, logger)
	if err != nil {
		return err
	}
	defer uploader.Close()

	var progress seeder.ProgressFunc
	if verbose {
		progress = seeder.NewPrinter(os.Stderr)
	}
	if err := uploader.Upload(ctx, loc.path, progress); err != nil {
		return fmt.Errorf("uploading: %w", err)
	}
	fmt.Printf("Uploaded to %s\n", seedUpload)
	return nil
}
