// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrTemplateNotFound indicates a template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrOrganizationNotFound indicates an organization was not found by the given identifier.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrConnectionNotFound indicates a connection was not found by the given identifier.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrExecutionNotFound indicates a workflow execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionFinalized indicates an update targeted an execution already in a terminal state.
	ErrExecutionFinalized = errors.New("execution already finalized")

	// ErrDocumentNotFound indicates a generated document was not found.
	ErrDocumentNotFound = errors.New("generated document not found")

	// ErrApprovalNotFound indicates no approval matches the id or token.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrApprovalNotPending indicates a transition lost the race: the approval was already decided.
	ErrApprovalNotPending = errors.New("approval is not pending")

	// ErrDuplicateMapping indicates two mappings of one workflow share a template tag.
	ErrDuplicateMapping = errors.New("duplicate template tag mapping")
)

// RecordError wraps repository errors with the entity and operation involved.
type RecordError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Transition")
	Entity string // Entity kind (e.g., "workflow", "approval")
	ID     string // Record identifier if applicable
	Err    error  // Underlying error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op, entity, id string, err error) *RecordError {
	return &RecordError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsNotFound checks if an error indicates any record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrOrganizationNotFound) ||
		errors.Is(err, ErrConnectionNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrApprovalNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsApprovalNotPending checks if an approval transition found a decided approval.
func IsApprovalNotPending(err error) bool {
	return errors.Is(err, ErrApprovalNotPending)
}
