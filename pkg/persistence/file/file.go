// Package file provides file-based persistence implementation for workflows, executions and approvals.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/docflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root             string
	workflowRepo     *WorkflowRepository
	fieldMappingRepo *FieldMappingRepository
	templateRepo     *TemplateRepository
	organizationRepo *OrganizationRepository
	connectionRepo   *ConnectionRepository
	executionRepo    *ExecutionRepository
	documentRepo     *DocumentRepository
	approvalRepo     *ApprovalRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	fieldMappings := NewFieldMappingRepository(cleanRoot)

	return &Persistence{
		root:             cleanRoot,
		workflowRepo:     NewWorkflowRepository(cleanRoot, fieldMappings),
		fieldMappingRepo: fieldMappings,
		templateRepo:     NewTemplateRepository(cleanRoot),
		organizationRepo: NewOrganizationRepository(cleanRoot),
		connectionRepo:   NewConnectionRepository(cleanRoot),
		executionRepo:    NewExecutionRepository(cleanRoot),
		documentRepo:     NewDocumentRepository(cleanRoot),
		approvalRepo:     NewApprovalRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) FieldMappingRepository() persistence.FieldMappingRepository {
	return fp.fieldMappingRepo
}

func (fp *Persistence) TemplateRepository() persistence.TemplateRepository {
	return fp.templateRepo
}

func (fp *Persistence) OrganizationRepository() persistence.OrganizationRepository {
	return fp.organizationRepo
}

func (fp *Persistence) ConnectionRepository() persistence.ConnectionRepository {
	return fp.connectionRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) DocumentRepository() persistence.DocumentRepository {
	return fp.documentRepo
}

func (fp *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return fp.approvalRepo
}
