// Package events defines event types and structures for execution and approval lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every docflow lifecycle event.
const Topic = "docflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent          EventType = "execution.started"
	ExecutionCompletedEvent        EventType = "execution.completed"
	ExecutionFailedEvent           EventType = "execution.failed"
	ExecutionAwaitingApprovalEvent EventType = "execution.awaiting_approval"

	// Artifact events.
	DocumentGeneratedEvent EventType = "document.generated"

	// Approval events.
	ApprovalRequestedEvent EventType = "approval.requested"
	ApprovalDecidedEvent   EventType = "approval.decided"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	WorkflowID     string         `json:"workflow_id"`
	OrganizationID string         `json:"organization_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID    string `json:"execution_id"`
	TriggerType    string `json:"trigger_type"`
	TriggeredBy    string `json:"triggered_by,omitempty"`
	SourceObjectID string `json:"source_object_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DocumentID  string `json:"document_id,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// ExecutionAwaitingApproval is published when a run pauses on an approval node.
type ExecutionAwaitingApproval struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	ApprovalID  string `json:"approval_id"`
	NodeID      string `json:"node_id"`
}

func (e ExecutionAwaitingApproval) GetType() EventType {
	return ExecutionAwaitingApprovalEvent
}

type DocumentGenerated struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DocumentID  string `json:"document_id"`
	Name        string `json:"name"`
	BackendURL  string `json:"backend_url"`
	PDFURL      string `json:"pdf_url,omitempty"`
}

func (e DocumentGenerated) GetType() EventType {
	return DocumentGeneratedEvent
}

// ApprovalRequested carries the links an approver needs; delivering them is up to the subscriber.
type ApprovalRequested struct {
	BaseEvent

	ApprovalID      string    `json:"approval_id"`
	ExecutionID     string    `json:"execution_id"`
	ApproverEmail   string    `json:"approver_email"`
	MessageTemplate string    `json:"message_template,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
	ApproveURL      string    `json:"approve_url"`
	RejectURL       string    `json:"reject_url"`
	StatusURL       string    `json:"status_url"`
	DocumentURL     string    `json:"document_url,omitempty"`
	PDFURL          string    `json:"pdf_url,omitempty"`
}

func (e ApprovalRequested) GetType() EventType {
	return ApprovalRequestedEvent
}

type ApprovalDecided struct {
	BaseEvent

	ApprovalID  string    `json:"approval_id"`
	ExecutionID string    `json:"execution_id"`
	Status      string    `json:"status"`
	Comment     string    `json:"comment,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

func (e ApprovalDecided) GetType() EventType {
	return ApprovalDecidedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
