package file

import (
	"context"
	"sort"
	"sync"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// DocumentRepository handles generated document file operations.
type DocumentRepository struct {
	mu    sync.Mutex
	store jsonStore[models.GeneratedDocument]
}

// NewDocumentRepository creates a new generated document repository.
func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{store: newJSONStore[models.GeneratedDocument](root, "documents")}
}

func (dr *DocumentRepository) Create(_ context.Context, document *models.GeneratedDocument) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if err := dr.store.write(document.ID, document); err != nil {
		return persistence.NewRecordError("Create", "document", document.ID, err)
	}

	return nil
}

func (dr *DocumentRepository) GetByID(_ context.Context, id string) (*models.GeneratedDocument, error) {
	document, err := dr.store.read(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "document", id, err)
	}

	if document == nil {
		return nil, persistence.NewRecordError("GetByID", "document", id, persistence.ErrDocumentNotFound)
	}

	return document, nil
}

func (dr *DocumentRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.GeneratedDocument, error) {
	documents, err := dr.store.list(func(d *models.GeneratedDocument) bool {
		return d.WorkflowID == workflowID
	})
	if err != nil {
		return nil, persistence.NewRecordError("ListByWorkflow", "document", workflowID, err)
	}

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].GeneratedAt.After(documents[j].GeneratedAt)
	})

	return documents, nil
}

func (dr *DocumentRepository) AttachPDF(_ context.Context, id string, pdf models.PDFRendition) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	document, err := dr.store.read(id)
	if err != nil {
		return persistence.NewRecordError("AttachPDF", "document", id, err)
	}

	if document == nil {
		return persistence.NewRecordError("AttachPDF", "document", id, persistence.ErrDocumentNotFound)
	}

	document.PDFFileID = &pdf.FileID
	document.PDFURL = &pdf.URL

	if err := dr.store.write(id, document); err != nil {
		return persistence.NewRecordError("AttachPDF", "document", id, err)
	}

	return nil
}

func (dr *DocumentRepository) UpdateSignature(_ context.Context, id string, update models.SignatureUpdate) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	document, err := dr.store.read(id)
	if err != nil {
		return persistence.NewRecordError("UpdateSignature", "document", id, err)
	}

	if document == nil {
		return persistence.NewRecordError("UpdateSignature", "document", id, persistence.ErrDocumentNotFound)
	}

	at := update.UpdatedAt.UTC()
	document.Status = update.Status
	document.SignatureUpdatedAt = &at

	if update.Provider != "" {
		document.SignatureProvider = update.Provider
	}

	if update.RequestID != "" {
		document.SignatureRequestID = update.RequestID
	}

	if err := dr.store.write(id, document); err != nil {
		return persistence.NewRecordError("UpdateSignature", "document", id, err)
	}

	return nil
}

func (dr *DocumentRepository) GetBySignatureRequest(_ context.Context, provider, requestID string) (*models.GeneratedDocument, error) {
	documents, err := dr.store.list(func(d *models.GeneratedDocument) bool {
		return d.SignatureProvider == provider && d.SignatureRequestID == requestID
	})
	if err != nil {
		return nil, persistence.NewRecordError("GetBySignatureRequest", "document", requestID, err)
	}

	if len(documents) == 0 {
		return nil, persistence.NewRecordError("GetBySignatureRequest", "document", requestID, persistence.ErrDocumentNotFound)
	}

	return documents[0], nil
}
