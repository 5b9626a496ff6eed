package file

import (
	"context"
	"sort"
	"sync"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// ExecutionRepository handles workflow execution file operations.
type ExecutionRepository struct {
	mu    sync.Mutex
	store jsonStore[models.WorkflowExecution]
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{store: newJSONStore[models.WorkflowExecution](root, "executions")}
}

func (er *ExecutionRepository) Create(_ context.Context, execution *models.WorkflowExecution) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if err := er.store.write(execution.ID, execution); err != nil {
		return persistence.NewRecordError("Create", "execution", execution.ID, err)
	}

	return nil
}

// Update rejects changes to executions whose stored state is terminal.
func (er *ExecutionRepository) Update(_ context.Context, execution *models.WorkflowExecution) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	stored, err := er.store.read(execution.ID)
	if err != nil {
		return persistence.NewRecordError("Update", "execution", execution.ID, err)
	}

	if stored == nil {
		return persistence.NewRecordError("Update", "execution", execution.ID, persistence.ErrExecutionNotFound)
	}

	if stored.Status.IsTerminal() {
		return persistence.NewRecordError("Update", "execution", execution.ID, persistence.ErrExecutionFinalized)
	}

	if err := er.store.write(execution.ID, execution); err != nil {
		return persistence.NewRecordError("Update", "execution", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	execution, err := er.store.read(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "execution", id, err)
	}

	if execution == nil {
		return nil, persistence.NewRecordError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
	}

	return execution, nil
}

func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	executions, err := er.store.list(func(e *models.WorkflowExecution) bool {
		return e.WorkflowID == workflowID
	})
	if err != nil {
		return nil, persistence.NewRecordError("ListByWorkflow", "execution", workflowID, err)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}
