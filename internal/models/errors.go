package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a staging id does not resolve to a staged file.
var ErrNotFound = errors.New("staged file not found")

// ValidationError reports input rejected before anything was staged.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid file %q: %s", e.Name, e.Reason)
}

// InvalidDocumentError reports an upload that is not a readable PDF.
type InvalidDocumentError struct {
	Name string
	Err  error
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("could not read PDF: %s", e.Name)
}

func (e *InvalidDocumentError) Unwrap() error { return e.Err }

// StorageError reports a failed write to the staging area.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("staging %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MergeError reports the input that aborted a merge.
type MergeError struct {
	StagingID string
	Name      string
	Err       error
}

// DisplayName is the uploader's file name when known, else the staging id.
func (e *MergeError) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.StagingID
}

func (e *MergeError) Error() string {
	name := e.DisplayName()
	if name == "" {
		return fmt.Sprintf("merge failed: %v", e.Err)
	}
	return fmt.Sprintf("merge failed on %s: %v", name, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// IsUserError reports whether err was caused by the caller's input.
func IsUserError(err error) bool {
	var ve *ValidationError
	var de *InvalidDocumentError
	return errors.As(err, &ve) || errors.As(err, &de)
}
