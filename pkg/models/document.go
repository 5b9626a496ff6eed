package models

import "time"

// DocumentStatus is the lifecycle of a generated document.
type DocumentStatus string

const (
	DocumentStatusGenerated         DocumentStatus = "generated"
	DocumentStatusSentForSignature  DocumentStatus = "sent_for_signature"
	DocumentStatusSigned            DocumentStatus = "signed"
	DocumentStatusSignatureCanceled DocumentStatus = "signature_canceled"
)

// GeneratedDocument is the artifact produced by a run. Only the signature fields
// change after creation.
type GeneratedDocument struct {
	ID                 string         `json:"id"`
	OrganizationID     string         `json:"organization_id"`
	WorkflowID         string         `json:"workflow_id"`
	ExecutionID        string         `json:"execution_id"`
	ConnectionID       string         `json:"connection_id,omitempty"`
	SourceObjectType   string         `json:"source_object_type"`
	SourceObjectID     string         `json:"source_object_id"`
	TemplateID         string         `json:"template_id"`
	TemplateVersion    int            `json:"template_version"`
	Name               string         `json:"name"`
	FileKind           FileKind       `json:"file_kind"`
	BackendFileID      string         `json:"backend_file_id"`
	BackendURL         string         `json:"backend_url"`
	PDFFileID          *string        `json:"pdf_file_id,omitempty"`
	PDFURL             *string        `json:"pdf_url,omitempty"`
	Status             DocumentStatus `json:"status"`
	SourceSnapshot     map[string]any `json:"source_snapshot"`
	GeneratedBy        string         `json:"generated_by,omitempty"`
	GeneratedAt        time.Time      `json:"generated_at"`
	SignatureProvider  string         `json:"signature_provider,omitempty"`
	SignatureRequestID string         `json:"signature_request_id,omitempty"`
	SignatureUpdatedAt *time.Time     `json:"signature_updated_at,omitempty"`
}

// SignatureUpdate carries a signature status change reported by a provider.
type SignatureUpdate struct {
	Provider  string
	RequestID string
	Status    DocumentStatus
	UpdatedAt time.Time
}

// PDFRendition identifies the PDF uploaded for a generated document.
type PDFRendition struct {
	FileID string
	URL    string
}
