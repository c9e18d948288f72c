package staging

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/access"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccessor() *access.Accessor {
	p := access.DefaultPolicy()
	p.Delay = time.Millisecond
	return access.New(p, nil, nil)
}

func newLocalStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "staging")
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)
	return New(backend, testAccessor(), nil, opts...), backend.Dir()
}

func TestStore_PutReadDelete(t *testing.T) {
	ctx := context.Background()
	store, dir := newLocalStore(t)

	staged, err := store.Put(ctx, []byte("%PDF-1.4 body"), "report.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, staged.ID)
	assert.Equal(t, "report.pdf", staged.OriginalName)
	assert.Len(t, staged.SHA256, 64)
	assert.Equal(t, filepath.Join(dir, staged.ID+".pdf"), staged.StoragePath)
	assert.FileExists(t, staged.StoragePath)

	path, err := store.Path(staged.ID)
	require.NoError(t, err)
	assert.Equal(t, staged.StoragePath, path)

	data, err := store.Read(ctx, staged.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 body"), data)

	store.Delete(ctx, staged.ID)
	assert.NoFileExists(t, staged.StoragePath)

	// Deleting again is a no-op.
	store.Delete(ctx, staged.ID)

	_, err = store.Read(ctx, staged.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_IdsNeverCollide(t *testing.T) {
	store, _ := newLocalStore(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		staged, err := store.Put(context.Background(), []byte("x"), "same.pdf")
		require.NoError(t, err)
		require.False(t, seen[staged.ID], "duplicate id %s", staged.ID)
		seen[staged.ID] = true
	}
}

func TestStore_RejectsMalformedIDs(t *testing.T) {
	store, _ := newLocalStore(t)

	for _, id := range []string{"", "../etc/passwd", "abc", "../../x.pdf"} {
		_, err := store.Path(id)
		var ve *models.ValidationError
		assert.ErrorAs(t, err, &ve, "id %q", id)

		_, err = store.Read(context.Background(), id)
		assert.ErrorAs(t, err, &ve, "id %q", id)
	}
}

func TestStore_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store, dir := newLocalStore(t, WithClock(func() time.Time { return now }))

	old, err := store.Put(ctx, []byte("old"), "old.pdf")
	require.NoError(t, err)
	young, err := store.Put(ctx, []byte("young"), "young.pdf")
	require.NoError(t, err)
	edge, err := store.Put(ctx, []byte("edge"), "edge.pdf")
	require.NoError(t, err)

	foreign := filepath.Join(dir, "leftover.tmp")
	require.NoError(t, os.WriteFile(foreign, []byte("x"), 0o644))
	oldDir := filepath.Join(dir, "olddir")
	require.NoError(t, os.MkdirAll(filepath.Join(oldDir, "nested"), 0o755))

	setAge := func(path string, age time.Duration) {
		ts := now.Add(-age)
		require.NoError(t, os.Chtimes(path, ts, ts))
	}
	setAge(old.StoragePath, 2*time.Hour)
	setAge(young.StoragePath, 10*time.Minute)
	setAge(edge.StoragePath, time.Hour)
	setAge(foreign, 25*time.Hour)
	setAge(oldDir, 3*time.Hour)

	result := store.Sweep(ctx, time.Hour)

	require.NoError(t, result.Err)
	assert.Equal(t, 5, result.Scanned)
	assert.Equal(t, 3, result.Removed)
	assert.Equal(t, []string{old.ID}, result.RemovedIDs)

	assert.NoFileExists(t, old.StoragePath)
	assert.NoFileExists(t, foreign)
	assert.NoDirExists(t, oldDir)
	assert.FileExists(t, young.StoragePath)
	assert.FileExists(t, edge.StoragePath)
}

type flakyBackend struct {
	entries []Entry
	failOn  string
	removed []string
}

func (b *flakyBackend) Write(context.Context, string, io.Reader) (int64, error) { return 0, nil }
func (b *flakyBackend) Read(context.Context, string) ([]byte, error) { return nil, nil }
func (b *flakyBackend) Locate(name string) string { return "mem://" + name }
func (b *flakyBackend) List(context.Context) ([]Entry, error) { return b.entries, nil }

func (b *flakyBackend) Remove(_ context.Context, name string) error {
	if name == b.failOn {
		return errors.New("disk on fire")
	}
	b.removed = append(b.removed, name)
	return nil
}

func TestStore_SweepContinuesPastFailures(t *testing.T) {
	now := time.Now()
	backend := &flakyBackend{
		entries: []Entry{
			{Name: "a.pdf", ModTime: now.Add(-2 * time.Hour)},
			{Name: "b.pdf", ModTime: now.Add(-2 * time.Hour)},
			{Name: "c.pdf", ModTime: now.Add(-2 * time.Hour)},
		},
		failOn: "b.pdf",
	}
	store := New(backend, testAccessor(), nil, WithClock(func() time.Time { return now }))

	result := store.Sweep(context.Background(), time.Hour)

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "mem://b.pdf")
	assert.Equal(t, 2, result.Removed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"a.pdf", "c.pdf"}, backend.removed)
}

func TestStore_PutFailureIsStorageError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)
	store := New(backend, testAccessor(), nil)

	require.NoError(t, os.RemoveAll(dir))

	_, err = store.Put(context.Background(), []byte("x"), "x.pdf")
	var se *models.StorageError
	assert.ErrorAs(t, err, &se)
}
