// Package persistence provides data storage abstraction layer for workflows, executions and approvals.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/docflow/pkg/models"
)

// Persistence groups the repositories backing the document generation engine.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	FieldMappingRepository() FieldMappingRepository
	TemplateRepository() TemplateRepository
	OrganizationRepository() OrganizationRepository
	ConnectionRepository() ConnectionRepository
	ExecutionRepository() ExecutionRepository
	DocumentRepository() DocumentRepository
	ApprovalRepository() ApprovalRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// List returns the workflows of an organization, or all of them when organizationID is empty.
	List(ctx context.Context, organizationID string) ([]*models.Workflow, error)
	// Delete removes the workflow and its field mappings.
	Delete(ctx context.Context, id string) error
}

// FieldMappingRepository stores the tag mappings owned by a workflow.
type FieldMappingRepository interface {
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowFieldMapping, error)
	// ReplaceForWorkflow swaps the whole mapping set atomically.
	ReplaceForWorkflow(ctx context.Context, workflowID string, mappings []*models.WorkflowFieldMapping) error
}

// TemplateRepository resolves template references.
type TemplateRepository interface {
	Save(ctx context.Context, template *models.Template) error
	GetByID(ctx context.Context, id string) (*models.Template, error)
}

// OrganizationRepository owns the document usage counter.
type OrganizationRepository interface {
	Save(ctx context.Context, organization *models.Organization) error
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	CanGenerateDocument(ctx context.Context, id string) (bool, error)
	// IncrementDocumentCount adds one to the usage counter as a single atomic operation.
	IncrementDocumentCount(ctx context.Context, id string) error
}

// ConnectionRepository stores integration credentials.
type ConnectionRepository interface {
	Save(ctx context.Context, connection *models.Connection) error
	GetByID(ctx context.Context, id string) (*models.Connection, error)
}

// ExecutionRepository stores workflow runs.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	// Update persists the execution unless the stored one is terminal, in which case
	// ErrExecutionFinalized is returned.
	Update(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	// ListByWorkflow returns executions newest first.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
}

// DocumentRepository stores generated documents.
type DocumentRepository interface {
	Create(ctx context.Context, document *models.GeneratedDocument) error
	GetByID(ctx context.Context, id string) (*models.GeneratedDocument, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.GeneratedDocument, error)
	// AttachPDF records the PDF rendition uploaded next to the document.
	AttachPDF(ctx context.Context, id string, pdf models.PDFRendition) error
	// UpdateSignature changes only the signature related fields.
	UpdateSignature(ctx context.Context, id string, update models.SignatureUpdate) error
	GetBySignatureRequest(ctx context.Context, provider, requestID string) (*models.GeneratedDocument, error)
}

// ApprovalRepository stores approval pause points.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *models.WorkflowApproval) error
	GetByID(ctx context.Context, id string) (*models.WorkflowApproval, error)
	GetByToken(ctx context.Context, token string) (*models.WorkflowApproval, error)
	// ListByWorkflow returns approvals newest first.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowApproval, error)
	// Transition moves a pending approval to a terminal status. It is a compare-and-set on
	// status: when the approval is no longer pending ErrApprovalNotPending is returned.
	Transition(ctx context.Context, id string, transition models.ApprovalTransition) (*models.WorkflowApproval, error)
	// ListExpiredPending returns pending approvals whose expiry is before now.
	ListExpiredPending(ctx context.Context, now time.Time) ([]*models.WorkflowApproval, error)
}
