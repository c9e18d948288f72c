// Package pdfengine applies page rotations and concatenates documents. Page
// parsing and writing is delegated to pdfcpu.
package pdfengine

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Configuration comes from code defaults; nothing is written under the
	// user's config dir.
	api.DisableConfigDir()
}

// ErrNoDocuments is returned by Concatenate when given nothing to merge.
var ErrNoDocuments = errors.New("no documents to concatenate")

// Engine renders previews, rotates and concatenates PDF documents. It is safe
// for concurrent use: every call gets its own pdfcpu configuration.
type Engine struct{}

// New returns an Engine.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) conf() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// PageCount returns the number of pages of the document in rs.
func (e *Engine) PageCount(rs io.ReadSeeker) (int, error) {
	n, err := api.PageCount(rs, e.conf())
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// RenderSinglePagePreview returns a complete one-page document holding the
// first page of rs, rotated when rotation is 90, 180 or 270.
func (e *Engine) RenderSinglePagePreview(rs io.ReadSeeker, rotation models.Rotation) ([]byte, error) {
	var firstPage bytes.Buffer
	if err := api.Trim(rs, &firstPage, []string{"1"}, e.conf()); err != nil {
		return nil, fmt.Errorf("failed to extract first page: %w", err)
	}
	if rotation.IsIdentity() {
		return firstPage.Bytes(), nil
	}
	return e.rotate(bytes.NewReader(firstPage.Bytes()), rotation)
}

// RotateAllPages returns the document in rs with every page rotated. An
// identity rotation returns the source bytes untouched.
func (e *Engine) RotateAllPages(rs io.ReadSeeker, rotation models.Rotation) ([]byte, error) {
	if rotation.IsIdentity() {
		data, err := io.ReadAll(rs)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		return data, nil
	}
	return e.rotate(rs, rotation)
}

func (e *Engine) rotate(rs io.ReadSeeker, rotation models.Rotation) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Rotate(rs, &out, int(rotation.Normalize()), nil, e.conf()); err != nil {
		return nil, fmt.Errorf("failed to rotate pages by %d: %w", rotation, err)
	}
	return out.Bytes(), nil
}

// Concatenate appends the pages of every document in order and returns the
// combined document.
func (e *Engine) Concatenate(docs []io.ReadSeeker) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	var out bytes.Buffer
	if err := api.MergeRaw(docs, &out, false, e.conf()); err != nil {
		return nil, fmt.Errorf("failed to merge documents: %w", err)
	}
	return out.Bytes(), nil
}
