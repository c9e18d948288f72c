package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/pdfmergeflow/internal/gcp"
	"google.golang.org/api/iterator"
)

// GCSBackend keeps staged files as objects under a prefix of a GCS bucket.
// Sweeping compares against the object's last update time.
type GCSBackend struct {
	bucket     *storage.BucketHandle
	bucketName string
	prefix     string
}

// NewGCSBackend returns a backend storing objects in bucket under prefix.
func NewGCSBackend(bucket *storage.BucketHandle, prefix string) *GCSBackend {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &GCSBackend{bucket: bucket, bucketName: bucket.BucketName(), prefix: prefix}
}

func (b *GCSBackend) object(name string) string { return b.prefix + name }

func (b *GCSBackend) Locate(name string) string {
	return fmt.Sprintf("gs://%s/%s", b.bucketName, b.object(name))
}

func (b *GCSBackend) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	n, err := gcp.WriteObjectAtomically(ctx, b.bucket, b.object(name), "application/pdf", r)
	if errors.Is(err, gcp.ErrObjectExists) {
		// Names are fresh UUIDs, so the object was written by an earlier
		// attempt whose response was lost.
		return n, nil
	}
	return n, err
}

func (b *GCSBackend) Read(ctx context.Context, name string) ([]byte, error) {
	reader, err := b.bucket.Object(b.object(name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", b.Locate(name), fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", b.Locate(name), err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (b *GCSBackend) Remove(ctx context.Context, name string) error {
	err := b.bucket.Object(b.object(name)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", b.Locate(name), err)
	}
	return nil
}

func (b *GCSBackend) List(ctx context.Context) ([]Entry, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: b.prefix})
	var entries []Entry
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", b.bucketName, b.prefix, err)
		}
		name := strings.TrimPrefix(attrs.Name, b.prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		entries = append(entries, Entry{Name: name, ModTime: attrs.Updated})
	}
	return entries, nil
}
