package staging

import (
	"context"
	"io"
	"time"
)

// Entry is one item found in the staging area.
type Entry struct {
	Name    string
	ModTime time.Time
	Dir     bool
}

// Backend is the storage the staging area lives on. Names are flat; a
// backend must report a missing object with an error matching fs.ErrNotExist.
type Backend interface {
	Write(ctx context.Context, name string, r io.Reader) (int64, error)
	Read(ctx context.Context, name string) ([]byte, error)
	// Remove deletes name. Removing a missing name is not an error.
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) ([]Entry, error)
	// Locate returns a human readable location for name, used in logs and
	// errors.
	Locate(name string) string
}
