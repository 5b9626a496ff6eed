package file

import (
	"context"
	"sync"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// TemplateRepository handles template file operations.
type TemplateRepository struct {
	store jsonStore[models.Template]
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{store: newJSONStore[models.Template](root, "templates")}
}

func (tr *TemplateRepository) Save(_ context.Context, template *models.Template) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	if err := tr.store.write(template.ID, template); err != nil {
		return persistence.NewRecordError("Save", "template", template.ID, err)
	}

	return nil
}

func (tr *TemplateRepository) GetByID(_ context.Context, id string) (*models.Template, error) {
	template, err := tr.store.read(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "template", id, err)
	}

	if template == nil {
		return nil, persistence.NewRecordError("GetByID", "template", id, persistence.ErrTemplateNotFound)
	}

	return template, nil
}

// OrganizationRepository handles organization file operations. Counter updates are
// serialized by a mutex so concurrent increments never lose an update.
type OrganizationRepository struct {
	mu    sync.Mutex
	store jsonStore[models.Organization]
}

// NewOrganizationRepository creates a new organization repository.
func NewOrganizationRepository(root string) *OrganizationRepository {
	return &OrganizationRepository{store: newJSONStore[models.Organization](root, "organizations")}
}

// Save upserts an organization, keeping the stored usage counter.
func (orgr *OrganizationRepository) Save(_ context.Context, organization *models.Organization) error {
	orgr.mu.Lock()
	defer orgr.mu.Unlock()

	existing, err := orgr.store.read(organization.ID)
	if err != nil {
		return persistence.NewRecordError("Save", "organization", organization.ID, err)
	}

	now := time.Now().UTC()
	if existing != nil {
		organization.DocumentsUsed = existing.DocumentsUsed
		organization.CreatedAt = existing.CreatedAt
	}

	if organization.CreatedAt.IsZero() {
		organization.CreatedAt = now
	}

	organization.UpdatedAt = now

	if err := orgr.store.write(organization.ID, organization); err != nil {
		return persistence.NewRecordError("Save", "organization", organization.ID, err)
	}

	return nil
}

func (orgr *OrganizationRepository) GetByID(_ context.Context, id string) (*models.Organization, error) {
	orgr.mu.Lock()
	defer orgr.mu.Unlock()

	return orgr.get("GetByID", id)
}

func (orgr *OrganizationRepository) get(op, id string) (*models.Organization, error) {
	organization, err := orgr.store.read(id)
	if err != nil {
		return nil, persistence.NewRecordError(op, "organization", id, err)
	}

	if organization == nil {
		return nil, persistence.NewRecordError(op, "organization", id, persistence.ErrOrganizationNotFound)
	}

	return organization, nil
}

func (orgr *OrganizationRepository) CanGenerateDocument(_ context.Context, id string) (bool, error) {
	orgr.mu.Lock()
	defer orgr.mu.Unlock()

	organization, err := orgr.get("CanGenerateDocument", id)
	if err != nil {
		return false, err
	}

	return organization.CanGenerateDocument(), nil
}

func (orgr *OrganizationRepository) IncrementDocumentCount(_ context.Context, id string) error {
	orgr.mu.Lock()
	defer orgr.mu.Unlock()

	organization, err := orgr.get("IncrementDocumentCount", id)
	if err != nil {
		return err
	}

	organization.DocumentsUsed++
	organization.UpdatedAt = time.Now().UTC()

	if err := orgr.store.write(id, organization); err != nil {
		return persistence.NewRecordError("IncrementDocumentCount", "organization", id, err)
	}

	return nil
}

// ConnectionRepository handles connection file operations.
type ConnectionRepository struct {
	store jsonStore[models.Connection]
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(root string) *ConnectionRepository {
	return &ConnectionRepository{store: newJSONStore[models.Connection](root, "connections")}
}

func (cr *ConnectionRepository) Save(_ context.Context, connection *models.Connection) error {
	now := time.Now().UTC()
	if connection.CreatedAt.IsZero() {
		connection.CreatedAt = now
	}

	connection.UpdatedAt = now

	if err := cr.store.write(connection.ID, connection); err != nil {
		return persistence.NewRecordError("Save", "connection", connection.ID, err)
	}

	return nil
}

func (cr *ConnectionRepository) GetByID(_ context.Context, id string) (*models.Connection, error) {
	connection, err := cr.store.read(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "connection", id, err)
	}

	if connection == nil {
		return nil, persistence.NewRecordError("GetByID", "connection", id, persistence.ErrConnectionNotFound)
	}

	return connection, nil
}
