package models

import "time"

// ExecutionStatus represents the state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning          ExecutionStatus = "running"
	ExecutionStatusAwaitingApproval ExecutionStatus = "awaiting_approval" // paused on an approval record
	ExecutionStatusCompleted        ExecutionStatus = "completed"
	ExecutionStatusFailed           ExecutionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// WorkflowExecution tracks one run of a workflow from trigger to a terminal state.
type WorkflowExecution struct {
	ID                  string          `json:"id"`
	WorkflowID          string          `json:"workflow_id"`
	OrganizationID      string          `json:"organization_id"`
	TriggerType         string          `json:"trigger_type"`
	TriggerData         map[string]any  `json:"trigger_data,omitempty"`
	TriggeredBy         string          `json:"triggered_by,omitempty"`
	SourceObjectID      string          `json:"source_object_id"`
	Status              ExecutionStatus `json:"status"`
	ErrorMessage        string          `json:"error_message,omitempty"`
	StartedAt           time.Time       `json:"started_at"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	DurationMs          *int64          `json:"duration_ms,omitempty"`
	GeneratedDocumentID *string         `json:"generated_document_id,omitempty"`
}

// Complete moves the execution to completed and records timing.
func (e *WorkflowExecution) Complete(now time.Time) {
	e.Status = ExecutionStatusCompleted
	e.ErrorMessage = ""
	e.finish(now)
}

// Fail moves the execution to failed with the given message and records timing.
func (e *WorkflowExecution) Fail(now time.Time, message string) {
	e.Status = ExecutionStatusFailed
	e.ErrorMessage = message
	e.finish(now)
}

// AwaitApproval pauses the execution until an approval decision resumes or terminates it.
func (e *WorkflowExecution) AwaitApproval() {
	e.Status = ExecutionStatusAwaitingApproval
}

// LinkDocument records the document produced by the run.
func (e *WorkflowExecution) LinkDocument(documentID string) {
	e.GeneratedDocumentID = &documentID
}

func (e *WorkflowExecution) finish(now time.Time) {
	completed := now.UTC()
	duration := completed.Sub(e.StartedAt).Milliseconds()

	if duration < 0 {
		duration = 0
	}

	e.CompletedAt = &completed
	e.DurationMs = &duration
}
