// Package access wraps reads and writes of staged files in a bounded retry
// loop. The sweep may delete or hold a file at the same moment a request
// touches it; the accessor tolerates that race instead of preventing it.
package access

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"syscall"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/gcp"
	"github.com/cenkalti/backoff/v4"
)

// Policy decides how often and for which failures an operation is retried.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

// DefaultPolicy retries transient lock conflicts three times, 100ms apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       100 * time.Millisecond,
		Retryable:   IsTransient,
	}
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return IsTransient(err)
	}
	return p.Retryable(err)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// IsTransient classifies failures caused by another process briefly holding
// the file: permission and busy errors on disk, throttling and 5xx from GCS.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, fs.ErrPermission),
		errors.Is(err, syscall.EBUSY),
		errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.ETXTBSY):
		return true
	default:
		return gcp.IsTransient(err)
	}
}

// FileAccessError is returned once the retry budget is spent on a transient
// failure.
type FileAccessError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("failed to access %s after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// Accessor runs file operations under a retry Policy.
type Accessor struct {
	policy  Policy
	logger  *slog.Logger
	onRetry func()
}

// New creates an Accessor. onRetry may be nil; it is called once per retry.
func New(policy Policy, logger *slog.Logger, onRetry func()) *Accessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessor{policy: policy, logger: logger, onRetry: onRetry}
}

// WithFile runs op against path, retrying transient failures. Failures the
// policy does not consider transient are returned unchanged on first sight.
func (a *Accessor) WithFile(ctx context.Context, path string, op func(path string) error) error {
	var (
		attempts  int
		permanent bool
	)
	operation := func() error {
		attempts++
		err := op(path)
		if err != nil && !a.policy.retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		a.logger.Warn("File access failed, will retry.",
			"path", path,
			"attempt", attempts,
			"maxAttempts", a.policy.MaxAttempts,
			"backoff", wait.String(),
			"error", err,
		)
		if a.onRetry != nil {
			a.onRetry()
		}
	}

	err := backoff.RetryNotify(operation, a.policy.backOff(ctx), notify)
	switch {
	case err == nil, permanent:
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return fmt.Errorf("file access to %s cancelled: %w", path, err)
	default:
		a.logger.Error("File access failed after all retries.", "path", path, "attempts", attempts, "error", err)
		return &FileAccessError{Path: path, Attempts: attempts, Err: err}
	}
}

// Do is WithFile for operations that produce a value.
func Do[T any](ctx context.Context, a *Accessor, path string, op func(path string) (T, error)) (T, error) {
	var result T
	err := a.WithFile(ctx, path, func(p string) error {
		v, err := op(p)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
