package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/Lllllllleong/pdfmergeflow/internal/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PDFMERGE_CONFIG_PATH", "")
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPageCount(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.pdf", pdftest.Document(3, 300))
	b := writeFile(t, dir, "b.pdf", pdftest.Document(1, 300))

	out, err := run(t, "pagecount", a, b)
	require.NoError(t, err)
	assert.Equal(t, a+"\t3\n"+b+"\t1\n", out)

	bad := writeFile(t, dir, "bad.pdf", []byte("nope"))
	_, err = run(t, "pagecount", bad)
	assert.ErrorContains(t, err, "could not read PDF")
}

func TestSweep(t *testing.T) {
	staging := t.TempDir()
	old := writeFile(t, staging, "0e6f1a52-7b3c-4d19-8a2e-5c4b3a291f07.pdf", pdftest.Document(1, 300))
	fresh := writeFile(t, staging, "7a3d2c1b-9e8f-4a6b-b5c4-d3e2f1a09b87.pdf", pdftest.Document(1, 300))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	out, err := run(t, "sweep", "--dir", staging, "--max-age", "1h")
	require.NoError(t, err)

	assert.Contains(t, out, "Scanned: 2")
	assert.Contains(t, out, "Removed: 1")
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestMerge(t *testing.T) {
	in := t.TempDir()
	staging := t.TempDir()
	a := writeFile(t, in, "a.pdf", pdftest.Build(101, 102))
	b := writeFile(t, in, "b.pdf", pdftest.Build(201))
	output := filepath.Join(in, "out.pdf")

	out, err := run(t, "merge", "--dir", staging, "-o", output, a, b+":270")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []pdftest.Page{
		{Width: 101, Rotate: 0},
		{Width: 102, Rotate: 0},
		{Width: 201, Rotate: 270},
	}, pdftest.Pages(t, data))

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMerge_MissingInputCleansUp(t *testing.T) {
	in := t.TempDir()
	staging := t.TempDir()
	a := writeFile(t, in, "a.pdf", pdftest.Document(1, 300))

	_, err := run(t, "merge", "--dir", staging, a, filepath.Join(in, "missing.pdf"))
	require.Error(t, err)

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseMergeArg(t *testing.T) {
	tests := []struct {
		arg      string
		path     string
		rotation models.Rotation
	}{
		{"a.pdf", "a.pdf", 0},
		{"a.pdf:90", "a.pdf", 90},
		{"a.pdf:180", "a.pdf", 180},
		{"a.pdf:45", "a.pdf", 0},
		{`C:\scans\a.pdf`, `C:\scans\a.pdf`, 0},
		{"dir:with:colons/a.pdf:270", "dir:with:colons/a.pdf", 270},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			path, rotation := parseMergeArg(tt.arg)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.rotation, rotation)
		})
	}
}
