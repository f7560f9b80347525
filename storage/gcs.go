package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend stores objects in a Google Cloud Storage bucket.
type GCSBackend struct {
	client     *gcs.Client
	bucket     string
	publicBase string
}

// NewGCSClient creates a read/write storage client using ambient credentials.
func NewGCSClient(ctx context.Context) (*gcs.Client, error) {
	return gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
}

// NewGCSBackend wraps client for bucket. Public URLs default to storage.googleapis.com.
func NewGCSBackend(client *gcs.Client, bucket, publicBase string) *GCSBackend {
	if publicBase == "" {
		publicBase = "https://storage.googleapis.com/" + bucket
	}
	return &GCSBackend{client: client, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}
}

func (b *GCSBackend) Name() string { return "gcs" }

func (b *GCSBackend) Put(ctx context.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "audio/mpeg"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (b *GCSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *GCSBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.Bucket(b.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *GCSBackend) Delete(ctx context.Context, key string) error {
	return b.client.Bucket(b.bucket).Object(key).Delete(ctx)
}

func (b *GCSBackend) URL(key string) string {
	return b.publicBase + "/" + key
}
