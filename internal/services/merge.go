package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/access"
	"github.com/Lllllllleong/pdfmergeflow/internal/catalog"
	"github.com/Lllllllleong/pdfmergeflow/internal/metrics"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/Lllllllleong/pdfmergeflow/internal/pdfengine"
	"github.com/Lllllllleong/pdfmergeflow/internal/staging"
	"golang.org/x/sync/errgroup"
)

// MergeConfig tunes the merge.
type MergeConfig struct {
	// Workers bounds how many inputs are read and rotated at once.
	Workers int
}

// MergeFunction concatenates staged files into one document and consumes
// them.
type MergeFunction struct {
	store   *staging.Store
	engine  *pdfengine.Engine
	catalog catalog.Catalog
	metrics *metrics.Metrics
	config  MergeConfig
	logger  *slog.Logger
}

func NewMerge(store *staging.Store, engine *pdfengine.Engine, cat catalog.Catalog, m *metrics.Metrics, config MergeConfig, logger *slog.Logger) *MergeFunction {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &MergeFunction{
		store:   store,
		engine:  engine,
		catalog: cat,
		metrics: m,
		config:  config,
		logger:  logger.With("component", "merge"),
	}
}

// Process merges items in order. Pages of items[i] come before pages of
// items[i+1] and keep their original order. Every referenced staged file is
// deleted before Process returns, whether the merge succeeded or not.
func (f *MergeFunction) Process(ctx context.Context, items []models.MergeItem) (merged []byte, err error) {
	if len(items) == 0 {
		return nil, &models.ValidationError{Reason: "no files to merge"}
	}

	logCtx := f.logger.With("fileCount", len(items))
	start := time.Now()
	defer func() {
		f.cleanup(context.WithoutCancel(ctx), items)
		f.metrics.OnMerge(len(items), time.Since(start), err)
	}()

	logCtx.Info("Starting merge.")

	parts := make([][]byte, len(items))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.Workers)
	for i, item := range items {
		eg.Go(func() error {
			part, err := f.load(gctx, item)
			if err != nil {
				return f.mergeError(ctx, item, err)
			}
			parts[i] = part
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logCtx.Error("Merge aborted.", "error", err)
		return nil, err
	}

	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}
	merged, err = f.engine.Concatenate(readers)
	if err != nil {
		logCtx.Error("Failed to concatenate documents.", "error", err)
		return nil, &models.MergeError{Err: err}
	}

	logCtx.Info("Merge complete.", "bytes", len(merged), "duration", time.Since(start).String())
	return merged, nil
}

// load reads one input through the accessor. Unrotated inputs are returned
// as stored; rotated ones are rewritten with every page turned.
func (f *MergeFunction) load(ctx context.Context, item models.MergeItem) ([]byte, error) {
	path, err := f.store.Path(item.StagingID)
	if err != nil {
		return nil, err
	}
	return access.Do(ctx, f.store.Accessor(), path, func(string) ([]byte, error) {
		data, err := f.store.Read(ctx, item.StagingID)
		if err != nil {
			return nil, err
		}
		if item.Rotation.IsIdentity() {
			return data, nil
		}
		rotated, err := f.engine.RotateAllPages(bytes.NewReader(data), item.Rotation)
		if err != nil {
			return nil, fmt.Errorf("could not rotate file: %w", err)
		}
		return rotated, nil
	})
}

func (f *MergeFunction) mergeError(ctx context.Context, item models.MergeItem, err error) error {
	mergeErr := &models.MergeError{StagingID: item.StagingID, Err: err}
	if entry, ok, lookupErr := f.catalog.Lookup(ctx, item.StagingID); lookupErr == nil && ok {
		mergeErr.Name = entry.OriginalName
	}
	return mergeErr
}

func (f *MergeFunction) cleanup(ctx context.Context, items []models.MergeItem) {
	for _, item := range items {
		if _, err := f.store.Path(item.StagingID); err != nil {
			continue
		}
		f.store.Delete(ctx, item.StagingID)
		if err := f.catalog.Forget(ctx, item.StagingID); err != nil {
			f.logger.Warn("Failed to forget catalog entry.", "stagingId", item.StagingID, "error", err)
		}
	}
}
