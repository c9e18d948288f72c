// Package catalog records metadata about staged files so errors and logs can
// name a file by what the user uploaded rather than by its staging id.
package catalog

import (
	"context"
	"sync"

	"github.com/Lllllllleong/pdfmergeflow/internal/models"
)

// Catalog stores one entry per staged file. Implementations must treat
// Forget of an unknown id as a no-op.
type Catalog interface {
	Record(ctx context.Context, entry models.CatalogEntry) error
	Lookup(ctx context.Context, id string) (models.CatalogEntry, bool, error)
	Forget(ctx context.Context, id string) error
}

// Memory is an in-process Catalog.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]models.CatalogEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]models.CatalogEntry)}
}

func (m *Memory) Record(_ context.Context, entry models.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

func (m *Memory) Lookup(_ context.Context, id string) (models.CatalogEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	return entry, ok, nil
}

func (m *Memory) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Len returns the number of recorded entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
