package seeder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// objectsDir matches the object layout of diskstore and gcsstore.
const objectsDir = "objects"

// GCSUploader uploads a seeded data directory to Google Cloud Storage.
type GCSUploader struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *zap.Logger
}

// NewGCSUploader creates a new GCS uploader.
// gcsPath should be in the format "gs://bucket/prefix".
func NewGCSUploader(ctx context.Context, gcsPath string, logger *zap.Logger) (*GCSUploader, error) {
	bucket, prefix, err := parseGCSPath(gcsPath)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GCSUploader{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
		logger: logger,
	}, nil
}

// parseGCSPath parses "gs://bucket/prefix" into bucket and prefix.
func parseGCSPath(gcsPath string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(gcsPath, "gs://") {
		return "", "", fmt.Errorf("invalid GCS path: must start with gs://")
	}

	path := strings.TrimPrefix(gcsPath, "gs://")
	bucket, prefix, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid GCS path: missing bucket name")
	}

	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return bucket, prefix, nil
}

// Upload uploads the objects and manifest from localDir to GCS.
// It uploads every object first (overwriting), then deletes remote objects
// that are not in localDir.
func (u *GCSUploader) Upload(ctx context.Context, localDir string, progress ProgressFunc) error {
	entries, err := os.ReadDir(filepath.Join(localDir, objectsDir))
	if err != nil {
		return fmt.Errorf("reading objects directory: %w", err)
	}

	uploaded := make(map[string]bool)
	total := int64(len(entries))
	var count int64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}

		localPath := filepath.Join(localDir, objectsDir, entry.Name())
		gcsKey := u.prefix + objectsDir + "/" + entry.Name()
		if err := u.uploadFile(ctx, localPath, gcsKey); err != nil {
			return fmt.Errorf("uploading %s: %w", entry.Name(), err)
		}

		uploaded[entry.Name()] = true
		count++
		if progress != nil && count%100 == 0 {
			progress(Progress{Phase: "upload", ObjectsWritten: count, ObjectsTotal: total})
		}
	}

	manifestPath := filepath.Join(localDir, ManifestFilename)
	if _, err := os.Stat(manifestPath); err == nil {
		if err := u.uploadFile(ctx, manifestPath, u.prefix+ManifestFilename); err != nil {
			return fmt.Errorf("uploading manifest: %w", err)
		}
	}

	// Stale objects are harmless, so a failed cleanup only logs.
	if err := u.cleanStaleObjects(ctx, uploaded); err != nil {
		u.logger.Warn("failed to clean stale objects", zap.Error(err))
	}

	if progress != nil {
		progress(Progress{Phase: "upload", ObjectsWritten: count, ObjectsTotal: total})
	}
	return nil
}

// cleanStaleObjects deletes remote objects that are not in current.
func (u *GCSUploader) cleanStaleObjects(ctx context.Context, current map[string]bool) error {
	prefix := u.prefix + objectsDir + "/"
	it := u.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("listing objects: %w", err)
		}

		name := strings.TrimPrefix(attrs.Name, prefix)
		if current[name] {
			continue
		}
		if err := u.bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return fmt.Errorf("deleting stale object %s: %w", attrs.Name, err)
		}
		u.logger.Debug("deleted stale object", zap.String("object", attrs.Name))
	}
	return nil
}

// uploadFile uploads a single file to GCS.
func (u *GCSUploader) uploadFile(ctx context.Context, localPath, gcsKey string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := u.bucket.Object(gcsKey).NewWriter(ctx)
	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// Close releases resources.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
