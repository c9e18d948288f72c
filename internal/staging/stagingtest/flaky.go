// Package stagingtest provides staging backends for tests.
package stagingtest

import (
	"context"
	"io/fs"
	"sync/atomic"
	"syscall"

	"github.com/Lllllllleong/pdfmergeflow/internal/staging"
)

// FlakyBackend wraps a Backend and fails reads with EBUSY, the error another
// process holding the file produces.
type FlakyBackend struct {
	staging.Backend

	failures atomic.Int64
	reads    atomic.Int64
}

func NewFlaky(b staging.Backend) *FlakyBackend {
	return &FlakyBackend{Backend: b}
}

// FailReads makes the next n reads fail. A negative n fails every read
// until FailReads is called again.
func (f *FlakyBackend) FailReads(n int) {
	f.failures.Store(int64(n))
}

// Reads returns how many reads were attempted, failed ones included.
func (f *FlakyBackend) Reads() int {
	return int(f.reads.Load())
}

func (f *FlakyBackend) Read(ctx context.Context, name string) ([]byte, error) {
	f.reads.Add(1)
	for {
		n := f.failures.Load()
		if n == 0 {
			return f.Backend.Read(ctx, name)
		}
		if n < 0 || f.failures.CompareAndSwap(n, n-1) {
			return nil, &fs.PathError{Op: "open", Path: f.Locate(name), Err: syscall.EBUSY}
		}
	}
}
