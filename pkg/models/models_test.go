package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_NameTemplate(t *testing.T) {
	w := &Workflow{}
	assert.Equal(t, DefaultNameTemplate, w.NameTemplate())

	w.OutputNameTemplate = "Proposal - {{company}}"
	assert.Equal(t, "Proposal - {{company}}", w.NameTemplate())
}

func TestWorkflow_Runnable(t *testing.T) {
	tests := []struct {
		status WorkflowStatus
		want   bool
	}{
		{status: WorkflowStatusDraft, want: true},
		{status: WorkflowStatusActive, want: true},
		{status: WorkflowStatusPaused, want: false},
		{status: WorkflowStatusArchived, want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			w := &Workflow{Status: tt.status}
			assert.Equal(t, tt.want, w.Runnable())
		})
	}
}

func TestWorkflow_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	valid := &Workflow{
		OrganizationID:   "org-1",
		Name:             "Proposals",
		Status:           WorkflowStatusDraft,
		SourceObjectType: "deal",
	}
	require.NoError(t, validate.Struct(valid))

	invalid := *valid
	invalid.Status = "published"
	assert.Error(t, validate.Struct(&invalid))
}

func TestPostAction_ApprovalConfig(t *testing.T) {
	action := PostAction{
		ID:   "approve",
		Type: PostActionApproval,
		Config: map[string]any{
			"approver_email":          "boss@example.com",
			"auto_approve_on_timeout": true,
		},
	}

	cfg, err := action.ApprovalConfig()
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", cfg.ApproverEmail)
	assert.Equal(t, DefaultApprovalTimeoutHours, cfg.TimeoutHours)
	assert.True(t, cfg.AutoApproveOnTimeout)

	action.Config["timeout_hours"] = "soon"
	_, err = action.ApprovalConfig()
	assert.Error(t, err)
}

func TestPostAction_SignatureConfig(t *testing.T) {
	action := PostAction{
		ID:   "sign",
		Type: PostActionSignature,
		Config: map[string]any{
			"provider": "clicksign",
			"signers": []any{
				map[string]any{"email": "a@example.com", "name": "Ana"},
			},
		},
	}

	cfg, err := action.SignatureConfig()
	require.NoError(t, err)
	assert.Equal(t, "clicksign", cfg.Provider)
	assert.Equal(t, []Signer{{Email: "a@example.com", Name: "Ana"}}, cfg.Signers)
}

func TestOrganization_CanGenerateDocument(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		used  int
		want  bool
	}{
		{"under limit", 10, 9, true},
		{"at limit", 10, 10, false},
		{"unlimited", 0, 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := &Organization{DocumentsLimit: tt.limit, DocumentsUsed: tt.used}
			assert.Equal(t, tt.want, org.CanGenerateDocument())
		})
	}
}

func TestWorkflowExecution_Transitions(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	exec := &WorkflowExecution{Status: ExecutionStatusRunning, StartedAt: started}
	exec.AwaitApproval()
	assert.Equal(t, ExecutionStatusAwaitingApproval, exec.Status)
	assert.False(t, exec.Status.IsTerminal())

	exec.Complete(started.Add(1500 * time.Millisecond))
	assert.Equal(t, ExecutionStatusCompleted, exec.Status)
	assert.True(t, exec.Status.IsTerminal())
	require.NotNil(t, exec.DurationMs)
	assert.Equal(t, int64(1500), *exec.DurationMs)

	failed := &WorkflowExecution{Status: ExecutionStatusRunning, StartedAt: started}
	failed.Fail(started.Add(time.Second), "boom")
	assert.Equal(t, ExecutionStatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.ErrorMessage)
	require.NotNil(t, failed.CompletedAt)
}

func TestWorkflowApproval_IsOverdue(t *testing.T) {
	expires := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	approval := &WorkflowApproval{Status: ApprovalStatusPending, ExpiresAt: expires}

	assert.True(t, approval.IsPending())
	assert.False(t, approval.IsOverdue(expires))
	assert.True(t, approval.IsOverdue(expires.Add(time.Second)))
}
