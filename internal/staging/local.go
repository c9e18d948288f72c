package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalBackend keeps staged files in a directory on local disk.
type LocalBackend struct {
	dir string
}

// NewLocalBackend creates dir if needed and returns a backend rooted there.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staging dir %s: %w", dir, err)
	}
	return &LocalBackend{dir: abs}, nil
}

// Dir returns the absolute staging directory.
func (b *LocalBackend) Dir() string { return b.dir }

func (b *LocalBackend) Locate(name string) string {
	return filepath.Join(b.dir, name)
}

func (b *LocalBackend) Write(_ context.Context, name string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(b.dir, ".incoming-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file in %s: %w", b.dir, err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), b.Locate(name)); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return n, nil
}

func (b *LocalBackend) Read(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(b.Locate(name))
}

func (b *LocalBackend) Remove(_ context.Context, name string) error {
	return os.RemoveAll(b.Locate(name))
}

func (b *LocalBackend) List(_ context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", b.dir, err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), ModTime: info.ModTime(), Dir: de.IsDir()})
	}
	return entries, nil
}
