// Package services provides the document generation engine and the error kinds it reports.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/persistence"
)

// Error kinds. Every error returned by this package matches exactly one of them with errors.Is.
var (
	// Configuration errors are not retryable, the workflow must be fixed (422).
	ErrConfiguration = errors.New("configuration error")

	// Quota errors are not retryable until the plan changes (402).
	ErrQuotaExceeded = errors.New("document quota exceeded")

	// Document backend errors are transient leaning; the caller may retry the run (502).
	ErrDocumentBackend = errors.New("document backend error")

	// Data source errors come from the CRM or other source system (502).
	ErrDataSource = errors.New("data source error")

	// Approval path errors (409, 410, 404).
	ErrAlreadyDecided = errors.New("approval already decided")
	ErrExpired        = errors.New("approval expired")
	ErrNotFound       = errors.New("not found")

	// Storage failures are fatal to the run (500).
	ErrPersistence = errors.New("persistence error")

	// Validation errors (400).
	ErrInvalidRequest = errors.New("invalid request")

	// Tenant mismatch on scoped reads (403).
	ErrForbidden = errors.New("forbidden")
)

// Error codes for API responses.
const (
	CodeConfiguration   = "configuration_error"
	CodeQuotaExceeded   = "quota_exceeded"
	CodeDocumentBackend = "document_backend_error"
	CodeDataSource      = "data_source_error"
	CodeAlreadyDecided  = "already_decided"
	CodeExpired         = "approval_expired"
	CodeNotFound        = "not_found"
	CodePersistence     = "persistence_error"
	CodeInvalidRequest  = "invalid_request"
	CodeForbidden       = "forbidden"
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Kind    error  // One of the Err* kinds above
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ServiceError) Unwrap() []error {
	errs := make([]error, 0, 2)

	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

func newError(op string, kind error, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Kind: kind, Err: err}
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return newError(op, ErrInvalidRequest, code, message, err)
}

func configurationError(op, message string, err error) *ServiceError {
	return newError(op, ErrConfiguration, CodeConfiguration, message, err)
}

func notFoundError(op, message string, err error) *ServiceError {
	return newError(op, ErrNotFound, CodeNotFound, message, err)
}

func persistenceError(op string, err error) *ServiceError {
	return newError(op, ErrPersistence, CodePersistence, "", err)
}

func backendError(op string, err error) *ServiceError {
	return newError(op, ErrDocumentBackend, CodeDocumentBackend, "", err)
}

// classify wraps a collaborator error into a ServiceError. Missing records become
// notFoundKind (configuration or not found depending on the caller), backend failures
// become ErrDocumentBackend, everything else is a persistence failure.
func classify(op string, err error, notFoundKind error) error {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return err
	}

	switch {
	case persistence.IsNotFound(err) && errors.Is(notFoundKind, ErrConfiguration):
		return configurationError(op, "", err)
	case persistence.IsNotFound(err):
		return notFoundError(op, "", err)
	case documents.IsBackendError(err):
		return backendError(op, err)
	default:
		return persistenceError(op, err)
	}
}

// KindOf returns the kind an error matches, or nil for foreign errors.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidRequest, ErrForbidden, ErrNotFound, ErrAlreadyDecided, ErrExpired,
		ErrQuotaExceeded, ErrConfiguration, ErrDocumentBackend, ErrDataSource, ErrPersistence,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsConflictError checks if an error is a decided approval that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyDecided)
}
