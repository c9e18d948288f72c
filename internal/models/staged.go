package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Rotation is a clockwise page rotation in degrees.
type Rotation int

const (
	RotateNone Rotation = 0
	Rotate90   Rotation = 90
	Rotate180  Rotation = 180
	Rotate270  Rotation = 270
)

// Normalize maps anything outside {90,180,270} to RotateNone. Unknown values
// are tolerated rather than rejected.
func (r Rotation) Normalize() Rotation {
	switch r {
	case Rotate90, Rotate180, Rotate270:
		return r
	default:
		return RotateNone
	}
}

// IsIdentity reports whether applying r leaves a page unchanged.
func (r Rotation) IsIdentity() bool {
	return r.Normalize() == RotateNone
}

// StagedFile is an uploaded document held in the staging area until it is
// merged or swept.
type StagedFile struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	StoragePath  string    `json:"storagePath"`
	PageCount    int       `json:"pageCount"`
	Rotation     Rotation  `json:"rotation"`
	SHA256       string    `json:"sha256"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CatalogEntry is the metadata record kept for a staged file.
type CatalogEntry struct {
	ID           string    `firestore:"id,omitempty" json:"id"`
	OriginalName string    `firestore:"originalName,omitempty" json:"originalName"`
	PageCount    int       `firestore:"pageCount" json:"pageCount"`
	SHA256       string    `firestore:"sha256,omitempty" json:"sha256"`
	Status       string    `firestore:"status,omitempty" json:"status"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty" json:"createdAt"`
}

const StatusStaged = "STAGED"

// EntryFor builds the catalog record of a staged file.
func EntryFor(f StagedFile) CatalogEntry {
	return CatalogEntry{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		PageCount:    f.PageCount,
		SHA256:       f.SHA256,
		Status:       StatusStaged,
		CreatedAt:    f.CreatedAt,
	}
}

// MergeItem is one entry of an ordered merge request.
type MergeItem struct {
	StagingID string
	Rotation  Rotation
}

// UnmarshalJSON accepts numbers and numeric strings. Anything it cannot read
// becomes RotateNone instead of failing the whole request.
func (r *Rotation) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Rotation(int(n)).Normalize()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*r = Rotation(v).Normalize()
			return nil
		}
	}
	*r = RotateNone
	return nil
}
