package models

// These structs define the JSON payloads exchanged with the browser client.
// The wire names predate the Go service and are kept as-is.

// UploadedFile describes one staged upload in an UploadBatchResponse.
type UploadedFile struct {
	OriginalName string   `json:"original_name"`
	TempName     string   `json:"temp_name"`
	PageCount    int      `json:"page_count"`
	Rotation     Rotation `json:"rotation"`
}

// UploadBatchResponse is the output of the upload endpoint.
type UploadBatchResponse struct {
	Files []UploadedFile `json:"files"`
}

// PreviewRequest is the input for the preview endpoint.
type PreviewRequest struct {
	TempName string   `json:"temp_name"`
	Filename string   `json:"filename,omitempty"`
	Rotation Rotation `json:"rotation"`
}

// StagingID returns the staging id, accepting the legacy "filename" field.
func (r PreviewRequest) StagingID() string {
	if r.TempName != "" {
		return r.TempName
	}
	return r.Filename
}

// MergeFile is one entry of a MergeRequest.
type MergeFile struct {
	TempName string   `json:"temp_name"`
	Rotation Rotation `json:"rotation"`
}

// MergeRequest is the input for the merge endpoint.
type MergeRequest struct {
	Files []MergeFile `json:"files"`
}

// Items converts the wire request into ordered merge items.
func (r MergeRequest) Items() []MergeItem {
	items := make([]MergeItem, 0, len(r.Files))
	for _, f := range r.Files {
		items = append(items, MergeItem{StagingID: f.TempName, Rotation: f.Rotation})
	}
	return items
}

// ErrorResponse is returned as JSON whenever a request fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadedFileFrom converts a staged file into its wire representation.
func UploadedFileFrom(f StagedFile) UploadedFile {
	return UploadedFile{
		OriginalName: f.OriginalName,
		TempName:     f.ID,
		PageCount:    f.PageCount,
		Rotation:     f.Rotation,
	}
}
