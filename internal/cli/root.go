// Package cli implements stagingctl, an operator tool for the staging area.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/config"
	"github.com/Lllllllleong/pdfmergeflow/internal/services"
	"github.com/spf13/cobra"
)

type options struct {
	dir     string
	maxAge  time.Duration
	verbose bool
}

// NewRootCmd builds the stagingctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "stagingctl",
		Short:         "Inspect and maintain the PDF staging area",
		Long:          "stagingctl sweeps expired staged files, counts pages and merges PDFs through the same pipeline the service uses.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.dir, "dir", "d", "", "Staging directory (overrides STAGING_DIR and the config file)")
	root.PersistentFlags().DurationVar(&opts.maxAge, "max-age", 0, "Maximum age of a staged file (overrides STAGING_MAX_AGE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline activity to stderr")

	root.AddCommand(newSweepCmd(opts))
	root.AddCommand(newPageCountCmd())
	root.AddCommand(newMergeCmd(opts))
	return root
}

// Execute runs stagingctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// pipeline loads the service configuration, applies flag overrides and
// builds a pipeline backed by it. The CLI never talks to the catalog.
func (o *options) pipeline(ctx context.Context, stderr io.Writer) (*services.Pipeline, error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.dir != "" {
		cfg.Staging.Dir = o.dir
		cfg.Staging.Bucket = ""
	}
	if o.maxAge > 0 {
		cfg.Staging.MaxAge = o.maxAge
	}
	cfg.Catalog.ProjectID = ""

	level := slog.LevelError
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	p, err := services.NewPipeline(ctx, cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	return p, nil
}
