package documents

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced backend file does not exist.
var ErrNotFound = errors.New("document not found")

// BackendError wraps a failed document backend call.
type BackendError struct {
	Op     string // Backend operation (e.g., "CopyTemplate", "ExportPDF")
	FileID string // File the operation targeted, if any
	Err    error  // Underlying error
}

func (e *BackendError) Error() string {
	if e.FileID == "" {
		return fmt.Sprintf("document backend %s failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("document backend %s failed for %s: %v", e.Op, e.FileID, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a backend error with context.
func NewBackendError(op, fileID string, err error) *BackendError {
	return &BackendError{Op: op, FileID: fileID, Err: err}
}

// IsBackendError checks if an error came from the document backend.
func IsBackendError(err error) bool {
	var target *BackendError

	return errors.As(err, &target)
}

// IsNotFound checks if an error indicates a missing backend file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
