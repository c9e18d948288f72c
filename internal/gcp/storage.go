package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectExists is returned by WriteObjectAtomically when the object is
// already present.
var ErrObjectExists = errors.New("object already exists")

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// WriteObjectAtomically streams r into a GCS object only if it doesn't already
// exist and returns the number of bytes written.
func WriteObjectAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, r io.Reader) (int64, error) {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	n, err := io.Copy(writer, r)
	if err != nil {
		_ = writer.Close()
		return n, fmt.Errorf("failed to write to GCS object %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		if IsPreconditionFailed(err) {
			slog.Warn("GCS object already exists.", "gcsObject", objectName)
			return n, ErrObjectExists
		}
		return n, fmt.Errorf("failed to finalize GCS write for %s: %w", objectName, err)
	}
	return n, nil
}

// IsPreconditionFailed reports whether err is a GCS 412 response.
func IsPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// IsTransient reports whether err is a GCS response worth retrying: rate
// limiting or a server-side failure.
func IsTransient(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
}
