package file

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store    jsonStore[models.Workflow]
	mappings *FieldMappingRepository
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string, mappings *FieldMappingRepository) *WorkflowRepository {
	return &WorkflowRepository{
		store:    newJSONStore[models.Workflow](root, "workflows"),
		mappings: mappings,
	}
}

// Save saves a workflow to the file system. Field mappings are stored separately.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	record := *workflow
	record.FieldMappings = nil

	if err := wr.store.write(workflow.ID, &record); err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// GetByID retrieves a workflow by its ID with its field mappings.
func (wr *WorkflowRepository) GetByID(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := wr.store.read(workflowID)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "workflow", workflowID, err)
	}

	if workflow == nil {
		return nil, persistence.NewRecordError("GetByID", "workflow", workflowID, persistence.ErrWorkflowNotFound)
	}

	workflow.FieldMappings, err = wr.mappings.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// List returns workflows sorted by creation time.
func (wr *WorkflowRepository) List(_ context.Context, organizationID string) ([]*models.Workflow, error) {
	workflows, err := wr.store.list(func(w *models.Workflow) bool {
		return organizationID == "" || w.OrganizationID == organizationID
	})
	if err != nil {
		return nil, persistence.NewRecordError("List", "workflow", "", err)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// Delete removes a workflow and its field mappings.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := wr.store.remove(id); err != nil {
		return persistence.NewRecordError("Delete", "workflow", id, err)
	}

	return wr.mappings.deleteForWorkflow(id)
}

// FieldMappingRepository stores each workflow's mapping set as a single file.
type FieldMappingRepository struct {
	mu    sync.Mutex
	store jsonStore[[]*models.WorkflowFieldMapping]
}

// NewFieldMappingRepository creates a new field mapping repository.
func NewFieldMappingRepository(root string) *FieldMappingRepository {
	return &FieldMappingRepository{store: newJSONStore[[]*models.WorkflowFieldMapping](root, "field_mappings")}
}

func (fr *FieldMappingRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowFieldMapping, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	mappings, err := fr.store.read(workflowID)
	if err != nil {
		return nil, persistence.NewRecordError("ListByWorkflow", "field mapping", workflowID, err)
	}

	if mappings == nil {
		return []*models.WorkflowFieldMapping{}, nil
	}

	return *mappings, nil
}

// ReplaceForWorkflow replaces the whole mapping set of a workflow.
func (fr *FieldMappingRepository) ReplaceForWorkflow(_ context.Context, workflowID string, mappings []*models.WorkflowFieldMapping) error {
	seen := make(map[string]struct{}, len(mappings))
	now := time.Now().UTC()
	stored := make([]*models.WorkflowFieldMapping, 0, len(mappings))

	for _, m := range mappings {
		tag := strings.TrimSpace(m.TemplateTag)
		if _, ok := seen[tag]; ok {
			return persistence.NewRecordError("ReplaceForWorkflow", "field mapping", workflowID,
				fmt.Errorf("%w: %s", persistence.ErrDuplicateMapping, tag))
		}

		seen[tag] = struct{}{}

		record := *m
		record.WorkflowID = workflowID
		record.TemplateTag = tag

		if record.ID == "" {
			record.ID = uuid.NewString()
		}

		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}

		stored = append(stored, &record)
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()

	if err := fr.store.write(workflowID, &stored); err != nil {
		return persistence.NewRecordError("ReplaceForWorkflow", "field mapping", workflowID, err)
	}

	return nil
}

func (fr *FieldMappingRepository) deleteForWorkflow(workflowID string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if err := fr.store.remove(workflowID); err != nil {
		return persistence.NewRecordError("Delete", "field mapping", workflowID, err)
	}

	return nil
}
