package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdfmergeflow/internal/access"
	"github.com/Lllllllleong/pdfmergeflow/internal/metrics"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/Lllllllleong/pdfmergeflow/internal/pdfengine"
	"github.com/Lllllllleong/pdfmergeflow/internal/staging"
)

// PreviewFunction renders the first page of a staged file.
type PreviewFunction struct {
	store   *staging.Store
	engine  *pdfengine.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPreview(store *staging.Store, engine *pdfengine.Engine, m *metrics.Metrics, logger *slog.Logger) *PreviewFunction {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreviewFunction{store: store, engine: engine, metrics: m, logger: logger.With("component", "preview")}
}

// Process returns a one-page PDF of the staged file's first page with
// rotation applied. The staged file is left in place.
func (f *PreviewFunction) Process(ctx context.Context, stagingID string, rotation models.Rotation) ([]byte, error) {
	logCtx := f.logger.With("stagingId", stagingID, "rotation", int(rotation))

	path, err := f.store.Path(stagingID)
	if err != nil {
		return nil, err
	}

	out, err := access.Do(ctx, f.store.Accessor(), path, func(string) ([]byte, error) {
		data, err := f.store.Read(ctx, stagingID)
		if err != nil {
			return nil, err
		}
		preview, err := f.engine.RenderSinglePagePreview(bytes.NewReader(data), rotation)
		if err != nil {
			return nil, fmt.Errorf("could not generate preview: %w", err)
		}
		return preview, nil
	})
	f.metrics.OnPreview(err)
	if err != nil {
		logCtx.Error("Preview failed.", "error", err)
		return nil, err
	}
	logCtx.Info("Preview rendered.", "bytes", len(out))
	return out, nil
}
