package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// DocumentRepository handles generated document database operations.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentRepository creates a new generated document repository.
func NewDocumentRepository(db *sql.DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

const documentColumns = `
			id
		  , organization_id
		  , workflow_id
		  , execution_id
		  , connection_id
		  , source_object_type
		  , source_object_id
		  , template_id
		  , template_version
		  , name
		  , file_kind
		  , backend_file_id
		  , backend_url
		  , pdf_file_id
		  , pdf_url
		  , status
		  , source_snapshot
		  , generated_by
		  , generated_at
		  , signature_provider
		  , signature_request_id
		  , signature_updated_at`

func (r *DocumentRepository) Create(ctx context.Context, document *models.GeneratedDocument) error {
	snapshotJSON, err := marshalJSON("source snapshot", document.SourceSnapshot)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO generated_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err = r.db.ExecContext(ctx, query,
		document.ID,
		document.OrganizationID,
		document.WorkflowID,
		document.ExecutionID,
		nullString(document.ConnectionID),
		nullString(document.SourceObjectType),
		nullString(document.SourceObjectID),
		document.TemplateID,
		document.TemplateVersion,
		document.Name,
		document.FileKind,
		document.BackendFileID,
		document.BackendURL,
		document.PDFFileID,
		document.PDFURL,
		document.Status,
		snapshotJSON,
		nullString(document.GeneratedBy),
		document.GeneratedAt,
		nullString(document.SignatureProvider),
		nullString(document.SignatureRequestID),
		document.SignatureUpdatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Create", "document", document.ID, err)
	}

	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM generated_documents WHERE id = $1`

	return r.getOne(ctx, "GetByID", id, query, id)
}

func (r *DocumentRepository) GetBySignatureRequest(ctx context.Context, provider, requestID string) (*models.GeneratedDocument, error) {
	query := `SELECT ` + documentColumns + `
		FROM generated_documents
		WHERE signature_provider = $1 AND signature_request_id = $2
		LIMIT 1`

	return r.getOne(ctx, "GetBySignatureRequest", requestID, query, provider, requestID)
}

func (r *DocumentRepository) getOne(ctx context.Context, op, id, query string, args ...any) (*models.GeneratedDocument, error) {
	document, err := r.scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError(op, "document", id, persistence.ErrDocumentNotFound)
		}

		return nil, persistence.NewRecordError(op, "document", id, err)
	}

	return document, nil
}

func (r *DocumentRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.GeneratedDocument, error) {
	query := `SELECT ` + documentColumns + `
		FROM generated_documents
		WHERE workflow_id = $1
		ORDER BY generated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewRecordError("ListByWorkflow", "document", workflowID, err)
	}
	defer closeRows(ctx, r.logger, rows)

	documents := make([]*models.GeneratedDocument, 0)

	for rows.Next() {
		document, err := r.scanDocument(rows)
		if err != nil {
			return nil, persistence.NewRecordError("ListByWorkflow", "document", workflowID, err)
		}

		documents = append(documents, document)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

func (r *DocumentRepository) AttachPDF(ctx context.Context, id string, pdf models.PDFRendition) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE generated_documents
		SET pdf_file_id = $2,
			pdf_url = $3
		WHERE id = $1
	`, id, pdf.FileID, pdf.URL)
	if err != nil {
		return persistence.NewRecordError("AttachPDF", "document", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRecordError("AttachPDF", "document", id, err)
	}

	if affected == 0 {
		return persistence.NewRecordError("AttachPDF", "document", id, persistence.ErrDocumentNotFound)
	}

	return nil
}

func (r *DocumentRepository) UpdateSignature(ctx context.Context, id string, update models.SignatureUpdate) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE generated_documents
		SET signature_provider = $2,
			signature_request_id = $3,
			status = $4,
			signature_updated_at = $5
		WHERE id = $1
	`, id, update.Provider, update.RequestID, update.Status, update.UpdatedAt.UTC())
	if err != nil {
		return persistence.NewRecordError("UpdateSignature", "document", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRecordError("UpdateSignature", "document", id, err)
	}

	if affected == 0 {
		return persistence.NewRecordError("UpdateSignature", "document", id, persistence.ErrDocumentNotFound)
	}

	return nil
}

func (r *DocumentRepository) scanDocument(row scanner) (*models.GeneratedDocument, error) {
	var (
		document                              models.GeneratedDocument
		connectionID, objectType, objectID    sql.NullString
		pdfFileID, pdfURL, generatedBy        sql.NullString
		signatureProvider, signatureRequestID sql.NullString
		signatureUpdatedAt                    sql.NullTime
		snapshotJSON                          []byte
	)

	err := row.Scan(
		&document.ID,
		&document.OrganizationID,
		&document.WorkflowID,
		&document.ExecutionID,
		&connectionID,
		&objectType,
		&objectID,
		&document.TemplateID,
		&document.TemplateVersion,
		&document.Name,
		&document.FileKind,
		&document.BackendFileID,
		&document.BackendURL,
		&pdfFileID,
		&pdfURL,
		&document.Status,
		&snapshotJSON,
		&generatedBy,
		&document.GeneratedAt,
		&signatureProvider,
		&signatureRequestID,
		&signatureUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	document.ConnectionID = connectionID.String
	document.SourceObjectType = objectType.String
	document.SourceObjectID = objectID.String
	document.GeneratedBy = generatedBy.String
	document.SignatureProvider = signatureProvider.String
	document.SignatureRequestID = signatureRequestID.String

	if pdfFileID.Valid {
		document.PDFFileID = &pdfFileID.String
	}

	if pdfURL.Valid {
		document.PDFURL = &pdfURL.String
	}

	if signatureUpdatedAt.Valid {
		document.SignatureUpdatedAt = &signatureUpdatedAt.Time
	}

	if err := unmarshalJSON("source snapshot", snapshotJSON, &document.SourceSnapshot); err != nil {
		return nil, err
	}

	return &document, nil
}
