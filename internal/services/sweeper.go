package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/catalog"
	"github.com/Lllllllleong/pdfmergeflow/internal/metrics"
	"github.com/Lllllllleong/pdfmergeflow/internal/staging"
	"golang.org/x/sync/singleflight"
)

// Sweeper evicts expired staged files. Triggers that arrive while a sweep is
// running share its result instead of starting another.
type Sweeper struct {
	store   *staging.Store
	catalog catalog.Catalog
	metrics *metrics.Metrics
	maxAge  time.Duration
	group   singleflight.Group
	async   sync.WaitGroup
	logger  *slog.Logger
}

func NewSweeper(store *staging.Store, cat catalog.Catalog, m *metrics.Metrics, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, catalog: cat, metrics: m, maxAge: maxAge, logger: logger.With("component", "sweeper")}
}

// Trigger runs a sweep, or waits for the one in flight.
func (s *Sweeper) Trigger(ctx context.Context) staging.SweepResult {
	v, _, shared := s.group.Do("sweep", func() (interface{}, error) {
		result := s.store.Sweep(ctx, s.maxAge)
		for _, id := range result.RemovedIDs {
			if err := s.catalog.Forget(ctx, id); err != nil {
				s.logger.Warn("Failed to forget catalog entry.", "stagingId", id, "error", err)
			}
		}
		s.metrics.OnSweep(result.Removed, result.Failed)
		return result, nil
	})
	if shared {
		s.logger.Debug("Joined sweep already in flight.")
	}
	return v.(staging.SweepResult)
}

// TriggerAsync starts a sweep in the background. It is called on session
// entry and never delays the request that triggered it.
func (s *Sweeper) TriggerAsync() {
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		s.Trigger(context.Background())
	}()
}

// Wait blocks until every sweep started by TriggerAsync has finished.
func (s *Sweeper) Wait() {
	s.async.Wait()
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("Periodic sweep started.", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Periodic sweep stopped.")
			return
		case <-ticker.C:
			s.Trigger(ctx)
		}
	}
}
