// Package pdftest builds small PDF documents for tests and reads back the
// page attributes the merge pipeline cares about.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	api.DisableConfigDir()
}

// Page is what a test can observe about a page.
type Page struct {
	Width  float64
	Rotate int
}

// Build returns a PDF with one page per width. Giving each page a distinct
// width lets tests track pages through a merge.
func Build(widths ...int) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(widths))
	for i := range widths {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(widths)))

	for i, w := range widths {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 792] /Resources << >> /Contents %d 0 R >>", w, 4+2*i))
		content := fmt.Sprintf("0 0 m %d 792 l S", w)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Document returns a PDF with n pages, all of the given width.
func Document(n, width int) []byte {
	widths := make([]int, n)
	for i := range widths {
		widths[i] = width
	}
	return Build(widths...)
}

// Pages parses data and returns the observable attributes of every page.
func Pages(t testing.TB, data []byte) []Page {
	t.Helper()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		t.Fatalf("failed to read PDF: %v", err)
	}

	pages := make([]Page, 0, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		_, _, inh, err := ctx.PageDict(i, false)
		if err != nil {
			t.Fatalf("failed to read page %d: %v", i, err)
		}
		p := Page{Rotate: inh.Rotate}
		if inh.MediaBox != nil {
			p.Width = inh.MediaBox.Width()
		}
		pages = append(pages, p)
	}
	return pages
}
