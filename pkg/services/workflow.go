package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/tags"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Workflow manages workflow configuration and exposes run history.
type Workflow struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		logger:      logger.With("module", "workflow_service"),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchByID retrieves a workflow by its ID with its field mappings.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, classify("FetchWorkflow", err, ErrNotFound)
	}

	return workflow, nil
}

// List returns the workflows of an organization, or every workflow when organizationID is empty.
func (w *Workflow) List(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().List(ctx, strings.TrimSpace(organizationID))
	if err != nil {
		return nil, persistenceError("ListWorkflows", err)
	}

	return workflows, nil
}

// Save creates or replaces a workflow definition. Field mappings are managed with
// ReplaceFieldMappings.
func (w *Workflow) Save(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	const op = "SaveWorkflow"

	if workflow == nil {
		return nil, NewValidationError(op, "workflow_required", "workflow cannot be nil", nil)
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	if err := w.validate.Struct(workflow); err != nil {
		return nil, NewValidationError(op, "invalid_workflow", err.Error(), err)
	}

	seen := make(map[string]bool, len(workflow.PostActions))
	for _, action := range workflow.PostActions {
		if err := w.validate.Struct(action); err != nil {
			return nil, NewValidationError(op, "invalid_post_action", err.Error(), err)
		}

		if seen[action.ID] {
			return nil, NewValidationError(op, "duplicate_post_action",
				fmt.Sprintf("post action id %q is used twice", action.ID), nil)
		}

		seen[action.ID] = true
	}

	if _, err := w.persistence.OrganizationRepository().GetByID(ctx, workflow.OrganizationID); err != nil {
		if persistence.IsNotFound(err) {
			return nil, NewValidationError(op, "unknown_organization",
				fmt.Sprintf("organization %s does not exist", workflow.OrganizationID), err)
		}

		return nil, persistenceError(op, err)
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, persistenceError(op, err)
	}

	return workflow, nil
}

// Delete removes a workflow and its field mappings.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.FetchByID(ctx, workflowID); err != nil {
		return err
	}

	if err := w.persistence.WorkflowRepository().Delete(ctx, workflowID); err != nil {
		return persistenceError("DeleteWorkflow", err)
	}

	return nil
}

// ReplaceFieldMappings swaps the whole mapping set of a workflow. Tags are trimmed and
// must be unique; transform names must be known.
func (w *Workflow) ReplaceFieldMappings(
	ctx context.Context,
	workflowID string,
	mappings []*models.WorkflowFieldMapping,
) ([]*models.WorkflowFieldMapping, error) {
	const op = "ReplaceFieldMappings"

	if _, err := w.FetchByID(ctx, workflowID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(mappings))

	for _, mapping := range mappings {
		if mapping == nil {
			return nil, NewValidationError(op, "invalid_mapping", "mapping cannot be nil", nil)
		}

		mapping.TemplateTag = strings.TrimSpace(mapping.TemplateTag)
		mapping.SourceField = strings.TrimSpace(mapping.SourceField)

		if err := w.validate.Struct(mapping); err != nil {
			return nil, NewValidationError(op, "invalid_mapping", err.Error(), err)
		}

		if !tags.KnownTransform(mapping.TransformType) {
			return nil, NewValidationError(op, "unknown_transform",
				fmt.Sprintf("tag %q uses unknown transform %q", mapping.TemplateTag, mapping.TransformType), nil)
		}

		if seen[mapping.TemplateTag] {
			return nil, NewValidationError(op, "duplicate_template_tag",
				fmt.Sprintf("tag %q is mapped twice", mapping.TemplateTag), persistence.ErrDuplicateMapping)
		}

		seen[mapping.TemplateTag] = true
		mapping.WorkflowID = workflowID
	}

	if err := w.persistence.FieldMappingRepository().ReplaceForWorkflow(ctx, workflowID, mappings); err != nil {
		if errors.Is(err, persistence.ErrDuplicateMapping) {
			return nil, NewValidationError(op, "duplicate_template_tag", err.Error(), err)
		}

		return nil, persistenceError(op, err)
	}

	stored, err := w.persistence.FieldMappingRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, persistenceError(op, err)
	}

	w.logger.InfoContext(ctx, "field mappings replaced", "workflow_id", workflowID, "count", len(stored))

	return stored, nil
}

// Activate enables a workflow once its template resolves and every post-action config
// satisfies its schema.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	const op = "ActivateWorkflow"

	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, configurationError(op, "archived workflows cannot be activated", nil)
	}

	if workflow.TemplateID == "" {
		return nil, configurationError(op, "workflow has no template", nil)
	}

	if _, err := w.persistence.TemplateRepository().GetByID(ctx, workflow.TemplateID); err != nil {
		return nil, classify(op, err, ErrConfiguration)
	}

	for _, action := range workflow.PostActions {
		if err := validatePostAction(action); err != nil {
			return nil, configurationError(op, err.Error(), nil)
		}
	}

	workflow.Status = models.WorkflowStatusActive
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, persistenceError(op, err)
	}

	w.logger.InfoContext(ctx, "workflow activated", "workflow_id", workflow.ID)

	return workflow, nil
}

// FetchExecution returns one run.
func (w *Workflow) FetchExecution(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	execution, err := w.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return nil, classify("FetchExecution", err, ErrNotFound)
	}

	return execution, nil
}

// ListExecutions returns the runs of a workflow newest first.
func (w *Workflow) ListExecutions(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	executions, err := w.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, persistenceError("ListExecutions", err)
	}

	return executions, nil
}

// ListExecutionsForOrganization returns the runs of a workflow newest first.
// organizationID must own the workflow.
func (w *Workflow) ListExecutionsForOrganization(
	ctx context.Context, workflowID, organizationID string,
) ([]*models.WorkflowExecution, error) {
	const op = "ListExecutions"

	if _, err := ownedWorkflow(ctx, w.persistence, op, workflowID, organizationID); err != nil {
		return nil, err
	}

	return w.ListExecutions(ctx, workflowID)
}

// ownedWorkflow loads a workflow on behalf of organizationID. Unknown workflows are
// not found, workflows of another organization are forbidden.
func ownedWorkflow(
	ctx context.Context, p persistence.Persistence, op, workflowID, organizationID string,
) (*models.Workflow, error) {
	if organizationID == "" {
		return nil, NewValidationError(op, "organization_required", "organization id is required", nil)
	}

	workflow, err := p.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, classify(op, err, ErrNotFound)
	}

	if workflow.OrganizationID != organizationID {
		return nil, newError(op, ErrForbidden, CodeForbidden, "workflow belongs to another organization", nil)
	}

	return workflow, nil
}

// ListDocuments returns the documents of a workflow newest first.
func (w *Workflow) ListDocuments(ctx context.Context, workflowID string) ([]*models.GeneratedDocument, error) {
	documents, err := w.persistence.DocumentRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, persistenceError("ListDocuments", err)
	}

	return documents, nil
}
