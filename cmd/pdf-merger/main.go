package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pdfmergeflow/internal/api"
	"github.com/Lllllllleong/pdfmergeflow/internal/config"
	"github.com/Lllllllleong/pdfmergeflow/internal/gcp"
	"github.com/Lllllllleong/pdfmergeflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	handler  *api.Handler
	pipeline *services.Pipeline
	once     sync.Once
	initErr  error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("UploadBatch", withHandler(func(h *api.Handler) http.HandlerFunc { return h.UploadBatch }))
	functions.HTTP("PreviewPage", withHandler(func(h *api.Handler) http.HandlerFunc { return h.PreviewPage }))
	functions.HTTP("MergeDocuments", withHandler(func(h *api.Handler) http.HandlerFunc { return h.MergeDocuments }))
	functions.HTTP("Metrics", withHandler(func(h *api.Handler) http.HandlerFunc { return h.Metrics().ServeHTTP }))
	functions.CloudEvent("SweepExpired", sweepExpired)
}

// setup builds the pipeline once per instance. Clients are reused across
// invocations.
func setup() (*api.Handler, error) {
	once.Do(func() {
		cfg, source, err := config.Load()
		if err != nil {
			initErr = err
			return
		}
		slog.Info("Configuration loaded.", "source", source)

		pipeline, initErr = services.NewPipeline(context.Background(), cfg, prometheus.DefaultRegisterer, slog.Default())
		if initErr != nil {
			return
		}
		handler = api.New(pipeline, prometheus.DefaultGatherer, slog.Default())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization.", "error", initErr)
	}
	return handler, initErr
}

func withHandler(pick func(*api.Handler) http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := setup()
		if err != nil {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		pick(h)(w, r)
	}
}

func sweepExpired(ctx context.Context, e cloudevents.Event) error {
	h, err := setup()
	if err != nil {
		return err
	}
	return h.SweepExpired(ctx, e)
}

// main serves every function locally. Deployed functions only use init.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := setup(); err != nil {
		os.Exit(1)
	}
	defer pipeline.Close()

	if interval := pipeline.Config.Staging.SweepInterval; interval > 0 {
		go pipeline.Sweeper.Run(ctx, interval)
	}

	port := gcp.GetEnv("PORT", "8080")
	slog.Info("Starting local functions server.", "port", port)
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions server stopped.", "error", err)
		os.Exit(1)
	}
}
