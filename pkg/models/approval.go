package models

import "time"

// ApprovalStatus is the state of a human approval pause point.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// ResumeContext is the persisted state needed to continue a paused run.
type ResumeContext struct {
	OrganizationID  string         `json:"organization_id"`
	DocumentID      string         `json:"document_id"`
	SourceObjectID  string         `json:"source_object_id"`
	SourceData      map[string]any `json:"source_data"`
	NextActionIndex int            `json:"next_action_index"`
}

// WorkflowApproval is a pending human decision on a paused execution. Status moves
// from pending to exactly one of approved, rejected or expired.
type WorkflowApproval struct {
	ID                   string         `json:"id"`
	ExecutionID          string         `json:"execution_id"`
	WorkflowID           string         `json:"workflow_id"`
	NodeID               string         `json:"node_id"`
	Context              ResumeContext  `json:"execution_context"`
	ApproverEmail        string         `json:"approver_email"`
	Token                string         `json:"token"`
	Status               ApprovalStatus `json:"status"`
	MessageTemplate      string         `json:"message_template,omitempty"`
	TimeoutHours         int            `json:"timeout_hours"`
	ExpiresAt            time.Time      `json:"expires_at"`
	DocumentURL          string         `json:"document_url,omitempty"`
	PDFURL               string         `json:"pdf_url,omitempty"`
	AutoApproveOnTimeout bool           `json:"auto_approve_on_timeout"`
	CreatedAt            time.Time      `json:"created_at"`
	ApprovedAt           *time.Time     `json:"approved_at,omitempty"`
	RejectedAt           *time.Time     `json:"rejected_at,omitempty"`
	ExpiredAt            *time.Time     `json:"expired_at,omitempty"`
	Comment              string         `json:"comment,omitempty"`
}

// IsPending reports whether a decision is still possible.
func (a *WorkflowApproval) IsPending() bool {
	return a.Status == ApprovalStatusPending
}

// IsOverdue reports whether the approval passed its expiry at the given time.
func (a *WorkflowApproval) IsOverdue(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// ApprovalTransition describes a compare-and-set from pending to a terminal status.
type ApprovalTransition struct {
	Status  ApprovalStatus
	At      time.Time
	Comment string
}

// Apply stamps a transition on the approval without checking the current status.
func (a *WorkflowApproval) Apply(t ApprovalTransition) {
	at := t.At.UTC()
	a.Status = t.Status

	switch t.Status {
	case ApprovalStatusApproved:
		a.ApprovedAt = &at
	case ApprovalStatusRejected:
		a.RejectedAt = &at
		a.Comment = t.Comment
	case ApprovalStatusExpired:
		a.ExpiredAt = &at
	}
}
