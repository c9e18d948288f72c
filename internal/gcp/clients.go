package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewBucket creates a Storage client and returns a handle to bucket. The
// client is returned so the caller can close it.
func NewBucket(ctx context.Context, bucket string) (*storage.Client, *storage.BucketHandle, error) {
	if bucket == "" {
		return nil, nil, fmt.Errorf("bucket name must be provided")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return client, client.Bucket(bucket), nil
}
