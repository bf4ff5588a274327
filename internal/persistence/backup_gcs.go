package persistence

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
)

// OffsiteUploader pushes a backup file's bytes to a secondary location.
// RotateBackups itself has no notion of offsite storage; the store calls
// UploadWeeklyTierBestEffort separately after every successful save,
// whether or not that save's rotation touched the weekly tier (SPEC_FULL.md
// §4.9's optional offsite weekly tier).
type OffsiteUploader interface {
	Upload(ctx context.Context, objectName string, r io.Reader) error
}

// GCSUploader uploads backup objects to a single Cloud Storage bucket. A
// nil *GCSUploader is valid and Upload is a no-op on it, so callers can
// wire it unconditionally and only pay for a client when GCSBucket is
// configured.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader constructs an uploader for bucket. Pass an empty bucket to
// get a disabled uploader (Upload becomes a no-op) rather than forcing
// every caller to nil-check.
func NewGCSUploader(ctx context.Context, bucket string) (*GCSUploader, error) {
	if bucket == "" {
		return &GCSUploader{}, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

// Upload writes objectName's content to the configured bucket. It is a
// no-op when the uploader was constructed with an empty bucket.
func (u *GCSUploader) Upload(ctx context.Context, objectName string, r io.Reader) error {
	if u == nil || u.client == nil {
		return nil
	}
	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("writing object %s: %w", objectName, err)
	}
	return w.Close()
}

// UploadWeeklyTierBestEffort uploads .bak.weekly.1 for path to the
// uploader, logging and swallowing any failure: offsite copy is a
// durability bonus, never a gate on the local save path succeeding (spec
// SPEC_FULL.md §4.9).
func UploadWeeklyTierBestEffort(ctx context.Context, logger *slog.Logger, uploader OffsiteUploader, path, objectPrefix string) {
	if uploader == nil {
		return
	}
	weekly1 := weeklyPath(path, 1)
	f, err := os.Open(weekly1)
	if err != nil {
		return // nothing to upload yet, not an error
	}
	defer f.Close()

	if err := uploader.Upload(ctx, objectPrefix+"/weekly-1.json", f); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("offsite weekly backup upload failed, continuing with local tiers only",
			"path", weekly1, "error", err)
	}
}
