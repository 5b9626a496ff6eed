// Package memory provides an in-process document editor backed by plain text.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/tags"
	"github.com/google/uuid"
)

// Operation names reported in backend errors and accepted by FailOn.
const (
	OpCopyTemplate   = "CopyTemplate"
	OpExtractTags    = "ExtractTags"
	OpSubstituteTags = "SubstituteTags"
	OpExportPDF      = "ExportPDF"
	OpUploadPDF      = "UploadPDF"
)

type file struct {
	name     string
	folderID string
	content  []byte
}

// Editor keeps files in memory. It is safe for concurrent use.
type Editor struct {
	mu       sync.RWMutex
	files    map[string]*file
	failures map[string]error
	calls    atomic.Int64
	urlBase  string
}

// NewEditor creates an empty editor. urlBase prefixes the URLs of created files.
func NewEditor(urlBase string) *Editor {
	if urlBase == "" {
		urlBase = "memory://files/"
	}

	return &Editor{
		files:    make(map[string]*file),
		failures: make(map[string]error),
		urlBase:  urlBase,
	}
}

// PutTemplate stores a template file with the given text.
func (e *Editor) PutTemplate(id, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.files[id] = &file{name: id, content: []byte(text)}
}

// Content returns the current text of a file.
func (e *Editor) Content(id string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	f, ok := e.files[id]
	if !ok {
		return "", false
	}

	return string(f.content), true
}

// Name returns the name and folder of a file.
func (e *Editor) Name(id string) (string, string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	f, ok := e.files[id]
	if !ok {
		return "", "", false
	}

	return f.name, f.folderID, true
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (e *Editor) FailOn(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err == nil {
		delete(e.failures, op)

		return
	}

	e.failures[op] = err
}

// Calls returns how many backend operations were attempted.
func (e *Editor) Calls() int {
	return int(e.calls.Load())
}

func (e *Editor) begin(op, fileID string) error {
	e.calls.Add(1)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err, ok := e.failures[op]; ok {
		return documents.NewBackendError(op, fileID, err)
	}

	return nil
}

func (e *Editor) lookup(op, id string) (*file, error) {
	f, ok := e.files[id]
	if !ok {
		return nil, documents.NewBackendError(op, id, documents.ErrNotFound)
	}

	return f, nil
}

func (e *Editor) store(name, folderID string, content []byte) *documents.File {
	id := uuid.NewString()
	e.files[id] = &file{name: name, folderID: folderID, content: content}

	return &documents.File{ID: id, URL: e.urlBase + id}
}

func (e *Editor) CopyTemplate(_ context.Context, templateFileID, name, folderID string) (*documents.File, error) {
	if err := e.begin(OpCopyTemplate, templateFileID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tmpl, err := e.lookup(OpCopyTemplate, templateFileID)
	if err != nil {
		return nil, err
	}

	content := make([]byte, len(tmpl.content))
	copy(content, tmpl.content)

	return e.store(name, folderID, content), nil
}

func (e *Editor) ExtractTags(_ context.Context, fileID string) ([]string, error) {
	if err := e.begin(OpExtractTags, fileID); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	f, err := e.lookup(OpExtractTags, fileID)
	if err != nil {
		return nil, err
	}

	return tags.Extract(string(f.content)), nil
}

// SubstituteTags rewrites the whole file at once from the snapshot taken under lock.
func (e *Editor) SubstituteTags(_ context.Context, fileID string, binding *tags.Binding) error {
	if err := e.begin(OpSubstituteTags, fileID); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.lookup(OpSubstituteTags, fileID)
	if err != nil {
		return err
	}

	text := string(f.content)
	found := tags.Extract(text)

	if len(found) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(found)*2)
	for token, value := range binding.Replacements(found) {
		pairs = append(pairs, token, value)
	}

	f.content = []byte(strings.NewReplacer(pairs...).Replace(text))

	return nil
}

func (e *Editor) ExportPDF(_ context.Context, fileID string) ([]byte, error) {
	if err := e.begin(OpExportPDF, fileID); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	f, err := e.lookup(OpExportPDF, fileID)
	if err != nil {
		return nil, err
	}

	return []byte(fmt.Sprintf("%%PDF-1.4\n%% %s\n%s", f.name, f.content)), nil
}

func (e *Editor) UploadPDF(_ context.Context, name, folderID string, content []byte) (*documents.File, error) {
	if err := e.begin(OpUploadPDF, ""); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store(name, folderID, content), nil
}
