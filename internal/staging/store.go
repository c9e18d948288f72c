// Package staging holds uploaded documents between upload and merge. Files
// are keyed by a fresh UUID and evicted by an age-based sweep.
package staging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/access"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/google/uuid"
)

const fileExt = ".pdf"

// Store manages staged files on a Backend. Every write and delete goes
// through the retrying accessor.
type Store struct {
	backend  Backend
	accessor *access.Accessor
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now, for sweep tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store on backend.
func New(backend Backend, accessor *access.Accessor, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend:  backend,
		accessor: accessor,
		logger:   logger.With("component", "staging-store"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accessor returns the accessor the store retries through.
func (s *Store) Accessor() *access.Accessor { return s.accessor }

func nameFor(id string) string { return id + fileExt }

// idFromName reverses nameFor. ok is false for entries the store did not create.
func idFromName(name string) (string, bool) {
	id, found := strings.CutSuffix(name, fileExt)
	if !found {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &models.ValidationError{Name: id, Reason: "malformed staging id"}
	}
	return nil
}

// Put stages data under a fresh id. originalName is kept for display only.
func (s *Store) Put(ctx context.Context, data []byte, originalName string) (models.StagedFile, error) {
	id := uuid.NewString()
	name := nameFor(id)
	location := s.backend.Locate(name)

	err := s.accessor.WithFile(ctx, location, func(string) error {
		_, err := s.backend.Write(ctx, name, bytes.NewReader(data))
		return err
	})
	if err != nil {
		s.logger.Error("Failed to stage file.", "originalName", originalName, "path", location, "error", err)
		return models.StagedFile{}, &models.StorageError{Op: "put", Err: err}
	}

	sum := sha256.Sum256(data)
	s.logger.Info("Staged uploaded file.", "stagingId", id, "originalName", originalName, "bytes", len(data))
	return models.StagedFile{
		ID:           id,
		OriginalName: originalName,
		StoragePath:  location,
		SHA256:       hex.EncodeToString(sum[:]),
		Size:         int64(len(data)),
		CreatedAt:    s.now(),
	}, nil
}

// Path resolves id to its storage location. Ids that are not UUIDs are
// rejected so callers cannot address anything outside the staging area.
func (s *Store) Path(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return s.backend.Locate(nameFor(id)), nil
}

// Read returns the staged bytes of id without retrying. Callers wrap it in
// the accessor together with whatever they do with the bytes.
func (s *Store) Read(ctx context.Context, id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := s.backend.Read(ctx, nameFor(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes id. It is idempotent and never fails: errors are logged.
func (s *Store) Delete(ctx context.Context, id string) {
	if err := validateID(id); err != nil {
		s.logger.Warn("Refusing to delete malformed staging id.", "stagingId", id)
		return
	}
	name := nameFor(id)
	location := s.backend.Locate(name)
	err := s.accessor.WithFile(ctx, location, func(string) error {
		return s.backend.Remove(ctx, name)
	})
	if err != nil {
		s.logger.Error("Error deleting staged file.", "stagingId", id, "path", location, "error", err)
		return
	}
	s.logger.Debug("Deleted staged file.", "stagingId", id)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned int
	Removed int
	Failed  int

	// RemovedIDs lists the staging ids of removed entries. Foreign entries
	// that were removed are counted in Removed only.
	RemovedIDs []string

	// Err joins every per-entry failure. The sweep continues past them.
	Err error
}

// Sweep removes every entry whose modification time is more than maxAge ago.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) SweepResult {
	var result SweepResult

	entries, err := s.backend.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list staging area for sweep.", "error", err)
		result.Err = err
		return result
	}

	now := s.now()
	var errs []error
	for _, e := range entries {
		result.Scanned++
		if now.Sub(e.ModTime) <= maxAge {
			continue
		}
		location := s.backend.Locate(e.Name)
		err := s.accessor.WithFile(ctx, location, func(string) error {
			return s.backend.Remove(ctx, e.Name)
		})
		if err != nil {
			s.logger.Error("Error deleting expired staged file.", "path", location, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", location, err))
			continue
		}
		result.Removed++
		if id, ok := idFromName(e.Name); ok {
			result.RemovedIDs = append(result.RemovedIDs, id)
		}
	}
	result.Failed = len(errs)
	result.Err = errors.Join(errs...)

	s.logger.Info("Sweep complete.", "scanned", result.Scanned, "removed", result.Removed, "failed", len(errs), "maxAge", maxAge.String())
	return result
}
