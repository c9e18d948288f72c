package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdfmergeflow/internal/access"
	"github.com/Lllllllleong/pdfmergeflow/internal/catalog"
	"github.com/Lllllllleong/pdfmergeflow/internal/config"
	"github.com/Lllllllleong/pdfmergeflow/internal/gcp"
	"github.com/Lllllllleong/pdfmergeflow/internal/metrics"
	"github.com/Lllllllleong/pdfmergeflow/internal/pdfengine"
	"github.com/Lllllllleong/pdfmergeflow/internal/staging"
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline bundles the components that serve one process.
type Pipeline struct {
	Config  *config.Config
	Store   *staging.Store
	Catalog catalog.Catalog
	Metrics *metrics.Metrics
	Ingest  *IngestFunction
	Preview *PreviewFunction
	Merge   *MergeFunction
	Sweeper *Sweeper

	closers []func() error
}

// NewPipeline builds every component from cfg. Staging lives in a GCS
// bucket when one is configured and in a local directory otherwise; the
// catalog is kept in Firestore when a project id is configured.
func NewPipeline(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{Config: cfg, Metrics: metrics.New(reg)}

	backend, err := p.newBackend(ctx, cfg.Staging)
	if err != nil {
		p.Close()
		return nil, err
	}

	cat, err := p.newCatalog(ctx, cfg.Catalog)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Catalog = cat

	policy := access.DefaultPolicy()
	policy.MaxAttempts = cfg.Retry.Attempts
	policy.Delay = cfg.Retry.Delay
	accessor := access.New(policy, logger, p.Metrics.OnAccessRetry)

	engine := pdfengine.New()
	p.Store = staging.New(backend, accessor, logger)
	p.Ingest = NewIngest(p.Store, engine, cat, p.Metrics, IngestConfig{
		MaxBytes:          cfg.Upload.MaxBytes,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	}, logger)
	p.Preview = NewPreview(p.Store, engine, p.Metrics, logger)
	p.Merge = NewMerge(p.Store, engine, cat, p.Metrics, MergeConfig{Workers: cfg.Merge.Workers}, logger)
	p.Sweeper = NewSweeper(p.Store, cat, p.Metrics, cfg.Staging.MaxAge, logger)

	logger.Info("Pipeline initialized.",
		"stagingDir", cfg.Staging.Dir,
		"stagingBucket", cfg.Staging.Bucket,
		"maxAge", cfg.Staging.MaxAge.String(),
		"maxUploadBytes", cfg.Upload.MaxBytes,
		"firestoreCatalog", cfg.Catalog.ProjectID != "",
	)
	return p, nil
}

func (p *Pipeline) newBackend(ctx context.Context, cfg config.StagingConfig) (staging.Backend, error) {
	if cfg.Bucket == "" {
		return staging.NewLocalBackend(cfg.Dir)
	}
	client, bucket, err := gcp.NewBucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging bucket: %w", err)
	}
	p.closers = append(p.closers, client.Close)
	return staging.NewGCSBackend(bucket, cfg.Prefix), nil
}

func (p *Pipeline) newCatalog(ctx context.Context, cfg config.CatalogConfig) (catalog.Catalog, error) {
	if cfg.ProjectID == "" {
		return catalog.NewMemory(), nil
	}
	client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	cat := catalog.NewFirestore(client, cfg.Collection)
	p.closers = append(p.closers, cat.Close)
	return cat, nil
}

// Close waits for background sweeps and releases cloud clients.
func (p *Pipeline) Close() error {
	if p.Sweeper != nil {
		p.Sweeper.Wait()
	}
	var firstErr error
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.closers = nil
	return firstErr
}
