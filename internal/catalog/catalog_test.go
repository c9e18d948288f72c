package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/gcp"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Catalog = (*Memory)(nil)
var _ Catalog = (*Firestore)(nil)

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	entry := models.EntryFor(models.StagedFile{
		ID:           "7f1c2e8a-7c57-4d4c-9d4f-2f0f5b0b7c11",
		OriginalName: "drawings.pdf",
		PageCount:    4,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, c.Record(ctx, entry))

	got, ok, err := c.Lookup(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "drawings.pdf", got.OriginalName)
	assert.Equal(t, 4, got.PageCount)
	assert.Equal(t, models.StatusStaged, got.Status)

	require.NoError(t, c.Forget(ctx, entry.ID))
	require.NoError(t, c.Forget(ctx, entry.ID))

	_, ok, err = c.Lookup(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestFirestore_Close(t *testing.T) {
	t.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:1")
	client, err := gcp.NewFirestoreClient(context.Background(), "pdfmerge-test")
	require.NoError(t, err)

	assert.NoError(t, NewFirestore(client, "staged_files").Close())
}
