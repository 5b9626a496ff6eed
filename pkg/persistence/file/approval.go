package file

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// ApprovalRepository handles approval file operations. Transitions hold the mutex
// across the status check and the write.
type ApprovalRepository struct {
	mu    sync.Mutex
	store jsonStore[models.WorkflowApproval]
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(root string) *ApprovalRepository {
	return &ApprovalRepository{store: newJSONStore[models.WorkflowApproval](root, "approvals")}
}

func (ar *ApprovalRepository) Create(_ context.Context, approval *models.WorkflowApproval) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if err := ar.store.write(approval.ID, approval); err != nil {
		return persistence.NewRecordError("Create", "approval", approval.ID, err)
	}

	return nil
}

func (ar *ApprovalRepository) GetByID(_ context.Context, id string) (*models.WorkflowApproval, error) {
	approval, err := ar.store.read(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "approval", id, err)
	}

	if approval == nil {
		return nil, persistence.NewRecordError("GetByID", "approval", id, persistence.ErrApprovalNotFound)
	}

	return approval, nil
}

func (ar *ApprovalRepository) GetByToken(_ context.Context, token string) (*models.WorkflowApproval, error) {
	approvals, err := ar.store.list(func(a *models.WorkflowApproval) bool {
		return token != "" && a.Token == token
	})
	if err != nil {
		return nil, persistence.NewRecordError("GetByToken", "approval", "", err)
	}

	if len(approvals) == 0 {
		return nil, persistence.NewRecordError("GetByToken", "approval", "", persistence.ErrApprovalNotFound)
	}

	return approvals[0], nil
}

func (ar *ApprovalRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowApproval, error) {
	approvals, err := ar.store.list(func(a *models.WorkflowApproval) bool {
		return a.WorkflowID == workflowID
	})
	if err != nil {
		return nil, persistence.NewRecordError("ListByWorkflow", "approval", workflowID, err)
	}

	sort.Slice(approvals, func(i, j int) bool {
		return approvals[i].CreatedAt.After(approvals[j].CreatedAt)
	})

	return approvals, nil
}

func (ar *ApprovalRepository) Transition(_ context.Context, id string, transition models.ApprovalTransition) (*models.WorkflowApproval, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	approval, err := ar.store.read(id)
	if err != nil {
		return nil, persistence.NewRecordError("Transition", "approval", id, err)
	}

	if approval == nil {
		return nil, persistence.NewRecordError("Transition", "approval", id, persistence.ErrApprovalNotFound)
	}

	if !approval.IsPending() {
		return nil, persistence.NewRecordError("Transition", "approval", id, persistence.ErrApprovalNotPending)
	}

	approval.Apply(transition)

	if err := ar.store.write(id, approval); err != nil {
		return nil, persistence.NewRecordError("Transition", "approval", id, err)
	}

	return approval, nil
}

func (ar *ApprovalRepository) ListExpiredPending(_ context.Context, now time.Time) ([]*models.WorkflowApproval, error) {
	approvals, err := ar.store.list(func(a *models.WorkflowApproval) bool {
		return a.IsPending() && a.IsOverdue(now)
	})
	if err != nil {
		return nil, persistence.NewRecordError("ListExpiredPending", "approval", "", err)
	}

	sort.Slice(approvals, func(i, j int) bool {
		return approvals[i].ExpiresAt.Before(approvals[j].ExpiresAt)
	})

	return approvals, nil
}
