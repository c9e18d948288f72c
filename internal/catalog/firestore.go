package catalog

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore keeps catalog entries in a collection, one document per staging
// id, so several function instances share them.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	return &Firestore{client: client, collection: collection}
}

func (f *Firestore) doc(id string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(id)
}

func (f *Firestore) Record(ctx context.Context, entry models.CatalogEntry) error {
	if _, err := f.doc(entry.ID).Set(ctx, entry); err != nil {
		return fmt.Errorf("failed to record catalog entry %s: %w", entry.ID, err)
	}
	return nil
}

func (f *Firestore) Lookup(ctx context.Context, id string) (models.CatalogEntry, bool, error) {
	snap, err := f.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.CatalogEntry{}, false, nil
	}
	if err != nil {
		return models.CatalogEntry{}, false, fmt.Errorf("failed to look up catalog entry %s: %w", id, err)
	}
	var entry models.CatalogEntry
	if err := snap.DataTo(&entry); err != nil {
		return models.CatalogEntry{}, false, fmt.Errorf("failed to decode catalog entry %s: %w", id, err)
	}
	return entry, true, nil
}

func (f *Firestore) Forget(ctx context.Context, id string) error {
	if _, err := f.doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete catalog entry %s: %w", id, err)
	}
	return nil
}

// Close releases the Firestore client.
func (f *Firestore) Close() error {
	return f.client.Close()
}
