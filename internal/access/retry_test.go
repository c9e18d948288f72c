package access

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func testPolicy() Policy {
	p := DefaultPolicy()
	p.Delay = time.Millisecond
	return p
}

func TestWithFile_SucceedsAfterTransientFailures(t *testing.T) {
	retries := 0
	a := New(testPolicy(), nil, func() { retries++ })

	calls := 0
	err := a.WithFile(context.Background(), "/staging/a.pdf", func(path string) error {
		calls++
		assert.Equal(t, "/staging/a.pdf", path)
		if calls < 3 {
			return &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestWithFile_ExhaustedBudgetReturnsFileAccessError(t *testing.T) {
	a := New(testPolicy(), nil, nil)

	calls := 0
	err := a.WithFile(context.Background(), "/staging/b.pdf", func(path string) error {
		calls++
		return &fs.PathError{Op: "remove", Path: path, Err: syscall.EBUSY}
	})

	var accessErr *FileAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, accessErr.Attempts)
	assert.Equal(t, "/staging/b.pdf", accessErr.Path)
	assert.ErrorIs(t, err, syscall.EBUSY)
}

func TestWithFile_PermanentFailureIsNotRetried(t *testing.T) {
	a := New(testPolicy(), nil, nil)
	corrupt := errors.New("pdfcpu: corrupt xref")

	calls := 0
	err := a.WithFile(context.Background(), "/staging/c.pdf", func(string) error {
		calls++
		return corrupt
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, corrupt, err)
	var accessErr *FileAccessError
	assert.False(t, errors.As(err, &accessErr))
}

func TestWithFile_NotFoundIsPermanent(t *testing.T) {
	a := New(testPolicy(), nil, nil)

	calls := 0
	err := a.WithFile(context.Background(), "/staging/gone.pdf", func(path string) error {
		calls++
		return &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWithFile_CustomPolicy(t *testing.T) {
	flaky := errors.New("flaky")
	policy := Policy{
		MaxAttempts: 5,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, flaky) },
	}
	a := New(policy, nil, nil)

	calls := 0
	err := a.WithFile(context.Background(), "x", func(string) error {
		calls++
		return fmt.Errorf("wrapped: %w", flaky)
	})

	var accessErr *FileAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, 5, calls)
}

func TestWithFile_CancelledContextStopsRetrying(t *testing.T) {
	policy := testPolicy()
	policy.Delay = time.Hour
	a := New(policy, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := a.WithFile(ctx, "x", func(string) error {
		calls++
		cancel()
		return fs.ErrPermission
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsValue(t *testing.T) {
	a := New(testPolicy(), nil, nil)

	calls := 0
	n, err := Do(context.Background(), a, "x", func(string) (int, error) {
		calls++
		if calls == 1 {
			return 0, syscall.EAGAIN
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"permission", fs.ErrPermission, true},
		{"eacces", syscall.EACCES, true},
		{"busy", syscall.EBUSY, true},
		{"not exist", fs.ErrNotExist, false},
		{"gcs throttled", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"gcs unavailable", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"gcs forbidden", &googleapi.Error{Code: http.StatusForbidden}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
