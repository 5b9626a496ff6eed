package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// TemplateRepository handles template database operations.
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.Template) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	if template.FileKind == "" {
		template.FileKind = models.FileKindDocument
	}

	if template.Version == 0 {
		template.Version = 1
	}

	query := `
		INSERT INTO templates (id, organization_id, name, backend_file_id, file_kind, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			backend_file_id = EXCLUDED.backend_file_id,
			file_kind = EXCLUDED.file_kind,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		template.ID,
		template.OrganizationID,
		template.Name,
		template.BackendFileID,
		template.FileKind,
		template.Version,
		template.CreatedAt,
		template.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "template", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	query := `
		SELECT id, organization_id, name, backend_file_id, file_kind, version, created_at, updated_at
		FROM templates
		WHERE id = $1
	`

	var template models.Template

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&template.ID,
		&template.OrganizationID,
		&template.Name,
		&template.BackendFileID,
		&template.FileKind,
		&template.Version,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "template", id, persistence.ErrTemplateNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "template", id, err)
	}

	return &template, nil
}

// OrganizationRepository handles organization database operations. The usage
// counter is only ever changed by a single UPDATE statement.
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new organization repository.
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Save upserts an organization, keeping the stored usage counter.
func (r *OrganizationRepository) Save(ctx context.Context, organization *models.Organization) error {
	now := time.Now().UTC()
	if organization.CreatedAt.IsZero() {
		organization.CreatedAt = now
	}

	organization.UpdatedAt = now

	query := `
		INSERT INTO organizations (id, name, documents_limit, documents_used, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			documents_limit = EXCLUDED.documents_limit,
			updated_at = EXCLUDED.updated_at
		RETURNING documents_used, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		organization.ID,
		organization.Name,
		organization.DocumentsLimit,
		organization.CreatedAt,
		organization.UpdatedAt,
	).Scan(&organization.DocumentsUsed, &organization.CreatedAt)
	if err != nil {
		return persistence.NewRecordError("Save", "organization", organization.ID, err)
	}

	return nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT id, name, documents_limit, documents_used, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	var organization models.Organization

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&organization.ID,
		&organization.Name,
		&organization.DocumentsLimit,
		&organization.DocumentsUsed,
		&organization.CreatedAt,
		&organization.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "organization", id, persistence.ErrOrganizationNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "organization", id, err)
	}

	return &organization, nil
}

func (r *OrganizationRepository) CanGenerateDocument(ctx context.Context, id string) (bool, error) {
	organization, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	return organization.CanGenerateDocument(), nil
}

func (r *OrganizationRepository) IncrementDocumentCount(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET documents_used = documents_used + 1, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return persistence.NewRecordError("IncrementDocumentCount", "organization", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRecordError("IncrementDocumentCount", "organization", id, err)
	}

	if affected == 0 {
		return persistence.NewRecordError("IncrementDocumentCount", "organization", id, persistence.ErrOrganizationNotFound)
	}

	return nil
}

// ConnectionRepository handles connection database operations.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) Save(ctx context.Context, connection *models.Connection) error {
	now := time.Now().UTC()
	if connection.CreatedAt.IsZero() {
		connection.CreatedAt = now
	}

	connection.UpdatedAt = now

	credentialsJSON, err := marshalJSON("credentials", connection.Credentials)
	if err != nil {
		return err
	}

	configJSON, err := marshalJSON("connection config", connection.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO connections (id, organization_id, provider, name, credentials, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			provider = EXCLUDED.provider,
			name = EXCLUDED.name,
			credentials = EXCLUDED.credentials,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		connection.ID,
		connection.OrganizationID,
		connection.Provider,
		nullString(connection.Name),
		credentialsJSON,
		configJSON,
		connection.CreatedAt,
		connection.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "connection", connection.ID, err)
	}

	return nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*models.Connection, error) {
	query := `
		SELECT id, organization_id, provider, name, credentials, config, created_at, updated_at
		FROM connections
		WHERE id = $1
	`

	var (
		connection                  models.Connection
		name                        sql.NullString
		credentialsJSON, configJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&connection.ID,
		&connection.OrganizationID,
		&connection.Provider,
		&name,
		&credentialsJSON,
		&configJSON,
		&connection.CreatedAt,
		&connection.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "connection", id, persistence.ErrConnectionNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "connection", id, err)
	}

	connection.Name = name.String

	if err := unmarshalJSON("credentials", credentialsJSON, &connection.Credentials); err != nil {
		return nil, err
	}

	if err := unmarshalJSON("connection config", configJSON, &connection.Config); err != nil {
		return nil, err
	}

	return &connection, nil
}
