package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Lllllllleong/pdfmergeflow/internal/access"
	"github.com/Lllllllleong/pdfmergeflow/internal/catalog"
	"github.com/Lllllllleong/pdfmergeflow/internal/metrics"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/Lllllllleong/pdfmergeflow/internal/pdfengine"
	"github.com/Lllllllleong/pdfmergeflow/internal/staging"
)

// IngestConfig holds the upload limits.
type IngestConfig struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// IngestFunction validates uploads, stages them and counts their pages.
type IngestFunction struct {
	store   *staging.Store
	engine  *pdfengine.Engine
	catalog catalog.Catalog
	metrics *metrics.Metrics
	config  IngestConfig
	logger  *slog.Logger
}

// Upload is one file of a batch. Open is called only when the file's turn
// comes, so a batch that fails early never reads the rest.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

func NewIngest(store *staging.Store, engine *pdfengine.Engine, cat catalog.Catalog, m *metrics.Metrics, config IngestConfig, logger *slog.Logger) *IngestFunction {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestFunction{
		store:   store,
		engine:  engine,
		catalog: cat,
		metrics: m,
		config:  config,
		logger:  logger.With("component", "ingest"),
	}
}

// Ingest stages a single upload and returns its metadata.
func (f *IngestFunction) Ingest(ctx context.Context, r io.Reader, claimedName string) (models.StagedFile, error) {
	logCtx := f.logger.With("claimedName", claimedName)

	if !hasAllowedExtension(claimedName, f.config.AllowedExtensions) {
		f.metrics.OnRejected("extension")
		logCtx.Warn("Rejected upload with disallowed extension.")
		return models.StagedFile{}, &models.ValidationError{Name: claimedName, Reason: "file type not allowed"}
	}
	name := SecureFilename(claimedName)
	if name == "" {
		f.metrics.OnRejected("name")
		logCtx.Warn("Rejected upload with unusable file name.")
		return models.StagedFile{}, &models.ValidationError{Name: claimedName, Reason: "file name is empty after sanitizing"}
	}

	data, err := io.ReadAll(io.LimitReader(r, f.config.MaxBytes+1))
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("failed to read upload %s: %w", name, err)
	}
	if int64(len(data)) > f.config.MaxBytes {
		f.metrics.OnRejected("size")
		logCtx.Warn("Rejected oversized upload.", "maxBytes", f.config.MaxBytes)
		return models.StagedFile{}, &models.ValidationError{Name: name, Reason: fmt.Sprintf("file exceeds %d bytes", f.config.MaxBytes)}
	}

	staged, err := f.store.Put(ctx, data, name)
	if err != nil {
		return models.StagedFile{}, err
	}
	logCtx = logCtx.With("stagingId", staged.ID)

	pageCount, err := access.Do(ctx, f.store.Accessor(), staged.StoragePath, func(string) (int, error) {
		stagedData, err := f.store.Read(ctx, staged.ID)
		if err != nil {
			return 0, err
		}
		n, err := f.engine.PageCount(bytes.NewReader(stagedData))
		if err != nil {
			return 0, &models.InvalidDocumentError{Name: name, Err: err}
		}
		return n, nil
	})
	if err != nil {
		var invalid *models.InvalidDocumentError
		if errors.As(err, &invalid) {
			f.metrics.OnRejected("invalid_document")
			logCtx.Warn("Uploaded file is not a readable PDF.", "error", err)
		} else {
			logCtx.Error("Failed to count pages of staged file.", "error", err)
		}
		f.store.Delete(context.WithoutCancel(ctx), staged.ID)
		return models.StagedFile{}, err
	}

	staged.PageCount = pageCount
	staged.Rotation = models.RotateNone
	if err := f.catalog.Record(ctx, models.EntryFor(staged)); err != nil {
		logCtx.Warn("Failed to record catalog entry.", "error", err)
	}
	f.metrics.OnStaged()
	logCtx.Info("Upload ingested.", "pageCount", pageCount)
	return staged, nil
}

// ProcessBatch ingests uploads in order and stops at the first failure. Files
// staged earlier in a failed batch are deleted, since the caller never
// learns their ids. The size ceiling applies to the batch as a whole.
func (f *IngestFunction) ProcessBatch(ctx context.Context, uploads []Upload) ([]models.StagedFile, error) {
	if len(uploads) == 0 {
		return nil, &models.ValidationError{Reason: "no files uploaded"}
	}

	staged := make([]models.StagedFile, 0, len(uploads))
	var total int64
	for _, u := range uploads {
		file, err := f.ingestOne(ctx, u)
		if err != nil {
			f.discard(ctx, staged)
			return nil, err
		}
		staged = append(staged, file)

		total += file.Size
		if total > f.config.MaxBytes {
			f.metrics.OnRejected("size")
			f.logger.Warn("Rejected oversized upload batch.", "fileCount", len(staged), "maxBytes", f.config.MaxBytes)
			f.discard(ctx, staged)
			return nil, &models.ValidationError{Reason: fmt.Sprintf("upload batch exceeds %d bytes", f.config.MaxBytes)}
		}
	}
	f.logger.Info("Upload batch ingested.", "fileCount", len(staged))
	return staged, nil
}

func (f *IngestFunction) ingestOne(ctx context.Context, u Upload) (models.StagedFile, error) {
	rc, err := u.Open()
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("failed to open upload %s: %w", u.Name, err)
	}
	defer rc.Close()
	return f.Ingest(ctx, rc, u.Name)
}

func (f *IngestFunction) discard(ctx context.Context, staged []models.StagedFile) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, s := range staged {
		f.store.Delete(cleanupCtx, s.ID)
		if err := f.catalog.Forget(cleanupCtx, s.ID); err != nil {
			f.logger.Warn("Failed to forget catalog entry.", "stagingId", s.ID, "error", err)
		}
	}
}
