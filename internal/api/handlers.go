// Package api adapts the staging pipeline to HTTP and CloudEvent handlers.
// The handlers are registered with the Functions Framework in cmd/pdf-merger
// and mounted on a plain mux by Routes for local serving.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/Lllllllleong/pdfmergeflow/internal/access"
	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/Lllllllleong/pdfmergeflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// maxJSONBody caps preview and merge request bodies.
	maxJSONBody = 1 << 20
	// multipartMemory is how much of a multipart body is buffered in memory
	// before spilling to temporary files.
	multipartMemory = 32 << 20
	// multipartOverhead covers boundaries and part headers on top of the
	// file payloads.
	multipartOverhead = 1 << 20
)

// Handler serves the pipeline's endpoints.
type Handler struct {
	pipeline *services.Pipeline
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// New returns a Handler. gatherer may be nil, in which case the metrics
// endpoint serves the default registry.
func New(p *services.Pipeline, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{pipeline: p, gatherer: gatherer, logger: logger.With("component", "api")}
}

// Routes mounts every HTTP endpoint under its function name.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/UploadBatch", h.UploadBatch)
	mux.HandleFunc("/PreviewPage", h.PreviewPage)
	mux.HandleFunc("/MergeDocuments", h.MergeDocuments)
	mux.Handle("/Metrics", h.Metrics())
	return mux
}

// UploadBatch stages every file of a multipart "files[]" form and returns
// their staging ids and page counts. An upload request starts a new
// session, so it also kicks off a background sweep.
func (h *Handler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logCtx := h.logger.With("endpoint", "UploadBatch")
	h.pipeline.Sweeper.TriggerAsync()

	upload := h.pipeline.Config.Upload
	limit := upload.MaxBytes + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, logCtx, &models.ValidationError{Reason: fmt.Sprintf("request body exceeds %d bytes", limit)})
			return
		}
		h.writeError(w, logCtx, &models.ValidationError{Reason: "expected a multipart form with files[]"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files[]"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["files"]
	}
	if upload.MaxBatchFiles > 0 && len(headers) > upload.MaxBatchFiles {
		h.writeError(w, logCtx, &models.ValidationError{Reason: fmt.Sprintf("at most %d files per batch", upload.MaxBatchFiles)})
		return
	}

	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, services.Upload{Name: fh.Filename, Open: opener(fh)})
	}

	staged, err := h.pipeline.Ingest.ProcessBatch(r.Context(), uploads)
	if err != nil {
		h.writeError(w, logCtx, err)
		return
	}

	resp := models.UploadBatchResponse{Files: make([]models.UploadedFile, 0, len(staged))}
	for _, s := range staged {
		resp.Files = append(resp.Files, models.UploadedFileFrom(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}

// PreviewPage returns the first page of a staged file with the requested
// rotation applied.
func (h *Handler) PreviewPage(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logCtx := h.logger.With("endpoint", "PreviewPage")

	var req models.PreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, logCtx, err)
		return
	}
	if req.StagingID() == "" {
		h.writeError(w, logCtx, &models.ValidationError{Reason: "temp_name is required"})
		return
	}

	out, err := h.pipeline.Preview.Process(r.Context(), req.StagingID(), req.Rotation)
	if err != nil {
		h.writeError(w, logCtx, err)
		return
	}
	writePDF(w, "inline", "preview.pdf", out)
}

// MergeDocuments concatenates the listed staged files in order and returns
// the result as a download. The listed files are consumed.
func (h *Handler) MergeDocuments(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logCtx := h.logger.With("endpoint", "MergeDocuments")

	var req models.MergeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, logCtx, err)
		return
	}

	merged, err := h.pipeline.Merge.Process(r.Context(), req.Items())
	if err != nil {
		h.writeError(w, logCtx, err)
		return
	}
	writePDF(w, "attachment", "merged_document.pdf", merged)
}

// Metrics serves the Prometheus exposition format.
func (h *Handler) Metrics() http.Handler {
	return promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})
}

// SweepExpired runs a sweep when a scheduler event arrives. The event
// payload is ignored.
func (h *Handler) SweepExpired(ctx context.Context, e cloudevents.Event) error {
	logCtx := h.logger.With("endpoint", "SweepExpired", "eventId", e.ID(), "eventType", e.Type())

	result := h.pipeline.Sweeper.Trigger(ctx)
	if result.Err != nil {
		logCtx.Error("Sweep finished with errors.", "removed", result.Removed, "failed", result.Failed, "error", result.Err)
		return fmt.Errorf("sweep failed for %d entries: %w", result.Failed, result.Err)
	}
	logCtx.Info("Sweep triggered by event.", "scanned", result.Scanned, "removed", result.Removed)
	return nil
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Error: "method not allowed"})
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
		return &models.ValidationError{Reason: fmt.Sprintf("malformed JSON body: %v", err)}
	}
	return nil
}

// statusFor maps a pipeline error to an HTTP status and the message shown
// to the client. Internal failures get a generic message; staging paths and
// OS errors never reach the client.
func statusFor(err error) (int, string) {
	var (
		mergeErr  *models.MergeError
		accessErr *access.FileAccessError
	)
	switch {
	case models.IsUserError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &accessErr):
		if errors.As(err, &mergeErr) {
			return http.StatusInternalServerError, fmt.Sprintf("merge failed on %s: staged file is busy, try again", mergeErr.DisplayName())
		}
		return http.StatusInternalServerError, "staged file is busy, try again"
	case errors.As(err, &mergeErr):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, logCtx *slog.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logCtx.Error("Request failed.", "status", status, "error", err)
	} else {
		logCtx.Warn("Request rejected.", "status", status, "error", err)
	}
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePDF(w http.ResponseWriter, disposition, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
