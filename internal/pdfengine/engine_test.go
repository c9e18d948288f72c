package pdfengine

import (
	"bytes"
	"io"
	"testing"

	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/Lllllllleong/pdfmergeflow/internal/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCount(t *testing.T) {
	e := New()
	for _, n := range []int{1, 2, 5} {
		got, err := e.PageCount(bytes.NewReader(pdftest.Document(n, 300)))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestPageCount_Corrupt(t *testing.T) {
	_, err := New().PageCount(bytes.NewReader([]byte("definitely not a pdf")))
	assert.Error(t, err)
}

func TestRenderSinglePagePreview(t *testing.T) {
	src := pdftest.Build(301, 302, 303)

	tests := []struct {
		name     string
		rotation models.Rotation
		want     int
	}{
		{"no rotation", 0, 0},
		{"quarter", 90, 90},
		{"half", 180, 180},
		{"three quarters", 270, 270},
		{"unsupported value is identity", 45, 0},
		{"negative is identity", -90, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().RenderSinglePagePreview(bytes.NewReader(src), tt.rotation)
			require.NoError(t, err)

			pages := pdftest.Pages(t, out)
			require.Len(t, pages, 1)
			assert.Equal(t, 301.0, pages[0].Width)
			assert.Equal(t, tt.want, pages[0].Rotate)
		})
	}
}

func TestRotateAllPages(t *testing.T) {
	src := pdftest.Build(310, 320)

	out, err := New().RotateAllPages(bytes.NewReader(src), models.Rotate270)
	require.NoError(t, err)

	pages := pdftest.Pages(t, out)
	require.Len(t, pages, 2)
	for i, p := range pages {
		assert.Equal(t, 270, p.Rotate, "page %d", i+1)
	}
	assert.Equal(t, 310.0, pages[0].Width)
	assert.Equal(t, 320.0, pages[1].Width)
}

func TestRotateAllPages_IdentityPassesThrough(t *testing.T) {
	src := pdftest.Document(2, 300)

	out, err := New().RotateAllPages(bytes.NewReader(src), models.RotateNone)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestConcatenate_PreservesOrder(t *testing.T) {
	a := pdftest.Build(101, 102, 103)
	b := pdftest.Build(201, 202)

	out, err := New().Concatenate([]io.ReadSeeker{bytes.NewReader(b), bytes.NewReader(a)})
	require.NoError(t, err)

	var widths []float64
	for _, p := range pdftest.Pages(t, out) {
		widths = append(widths, p.Width)
	}
	assert.Equal(t, []float64{201, 202, 101, 102, 103}, widths)
}

func TestConcatenate_Empty(t *testing.T) {
	_, err := New().Concatenate(nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}
