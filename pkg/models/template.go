package models

import "time"

// FileKind selects the document backend able to edit a template.
type FileKind string

const (
	FileKindDocument     FileKind = "document"
	FileKindPresentation FileKind = "presentation"
)

// Template references a template file stored in the document backend.
type Template struct {
	ID             string    `json:"id"               yaml:"id"`
	OrganizationID string    `json:"organization_id"  yaml:"organization_id"`
	Name           string    `json:"name"             yaml:"name"`
	BackendFileID  string    `json:"backend_file_id"  yaml:"backend_file_id"`
	FileKind       FileKind  `json:"file_kind"        yaml:"file_kind"`
	Version        int       `json:"version"          yaml:"version"`
	CreatedAt      time.Time `json:"created_at"       yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at"       yaml:"-"`
}
