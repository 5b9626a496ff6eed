// Package documents defines the document backend contract used to render templates.
package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/tags"
)

// File identifies a file living in the document backend.
type File struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Editor copies templates, substitutes tags and exports PDF renditions. Implementations
// never retry; callers own retry and timeout policy.
type Editor interface {
	CopyTemplate(ctx context.Context, templateFileID, name, folderID string) (*File, error)
	ExtractTags(ctx context.Context, fileID string) ([]string, error)
	// SubstituteTags replaces every tag present in the file in a single backend mutation.
	SubstituteTags(ctx context.Context, fileID string, binding *tags.Binding) error
	ExportPDF(ctx context.Context, fileID string) ([]byte, error)
	UploadPDF(ctx context.Context, name, folderID string, content []byte) (*File, error)
}

// ErrUnsupportedKind is returned when no editor is registered for a file kind.
var ErrUnsupportedKind = errors.New("unsupported file kind")

// Registry selects an Editor by template file kind.
type Registry struct {
	mu      sync.RWMutex
	editors map[models.FileKind]Editor
}

// NewRegistry creates an empty editor registry.
func NewRegistry() *Registry {
	return &Registry{editors: make(map[models.FileKind]Editor)}
}

// Register binds an editor to a file kind, replacing any previous one.
func (r *Registry) Register(kind models.FileKind, editor Editor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.editors[kind] = editor
}

// Get returns the editor for kind. An empty kind selects documents.
func (r *Registry) Get(kind models.FileKind) (Editor, error) {
	if kind == "" {
		kind = models.FileKindDocument
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	editor, ok := r.editors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	return editor, nil
}
