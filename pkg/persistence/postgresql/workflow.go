package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	mappings *FieldMappingRepository
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger, mappings *FieldMappingRepository) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger, mappings: mappings}
}

const workflowColumns = `
			id
		  , organization_id
		  , name
		  , description
		  , status
		  , source_connection_id
		  , source_object_type
		  , source_config
		  , template_id
		  , output_folder_id
		  , output_name_template
		  , create_pdf
		  , trigger_type
		  , trigger_config
		  , post_actions
		  , created_at
		  , updated_at`

// Save upserts a workflow. Field mappings are saved through FieldMappingRepository.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	sourceConfigJSON, err := marshalJSON("source config", workflow.SourceConfig)
	if err != nil {
		return err
	}

	triggerConfigJSON, err := marshalJSON("trigger config", workflow.TriggerConfig)
	if err != nil {
		return err
	}

	postActionsJSON, err := marshalJSON("post actions", workflow.PostActions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			source_connection_id = EXCLUDED.source_connection_id,
			source_object_type = EXCLUDED.source_object_type,
			source_config = EXCLUDED.source_config,
			template_id = EXCLUDED.template_id,
			output_folder_id = EXCLUDED.output_folder_id,
			output_name_template = EXCLUDED.output_name_template,
			create_pdf = EXCLUDED.create_pdf,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			post_actions = EXCLUDED.post_actions,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.OrganizationID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		nullString(workflow.SourceConnectionID),
		workflow.SourceObjectType,
		sourceConfigJSON,
		nullString(workflow.TemplateID),
		nullString(workflow.OutputFolderID),
		nullString(workflow.OutputNameTemplate),
		workflow.CreatePDF,
		nullString(workflow.TriggerType),
		triggerConfigJSON,
		postActionsJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// GetByID returns a workflow with its field mappings.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "workflow", id, err)
	}

	workflow.FieldMappings, err = r.mappings.ListByWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// List returns workflows ordered by creation time.
func (r *WorkflowRepository) List(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE ($1::varchar = '' OR organization_id = $1::varchar)
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, persistence.NewRecordError("List", "workflow", "", err)
	}
	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewRecordError("List", "workflow", "", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// Delete removes a workflow; its mappings go with it through ON DELETE CASCADE.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewRecordError("Delete", "workflow", id, err)
	}

	return nil
}

func (r *WorkflowRepository) scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow                                             models.Workflow
		description, connectionID, templateID, folderID      sql.NullString
		nameTemplate, triggerType                            sql.NullString
		sourceConfigJSON, triggerConfigJSON, postActionsJSON []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.OrganizationID,
		&workflow.Name,
		&description,
		&workflow.Status,
		&connectionID,
		&workflow.SourceObjectType,
		&sourceConfigJSON,
		&templateID,
		&folderID,
		&nameTemplate,
		&workflow.CreatePDF,
		&triggerType,
		&triggerConfigJSON,
		&postActionsJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Description = description.String
	workflow.SourceConnectionID = connectionID.String
	workflow.TemplateID = templateID.String
	workflow.OutputFolderID = folderID.String
	workflow.OutputNameTemplate = nameTemplate.String
	workflow.TriggerType = triggerType.String

	if err := unmarshalJSON("source config", sourceConfigJSON, &workflow.SourceConfig); err != nil {
		return nil, err
	}

	if err := unmarshalJSON("trigger config", triggerConfigJSON, &workflow.TriggerConfig); err != nil {
		return nil, err
	}

	if err := unmarshalJSON("post actions", postActionsJSON, &workflow.PostActions); err != nil {
		return nil, err
	}

	return &workflow, nil
}

// FieldMappingRepository handles workflow field mapping database operations.
type FieldMappingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFieldMappingRepository creates a new field mapping repository.
func NewFieldMappingRepository(db *sql.DB, logger *slog.Logger) *FieldMappingRepository {
	return &FieldMappingRepository{db: db, logger: logger}
}

func (r *FieldMappingRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowFieldMapping, error) {
	query := `
		SELECT id, workflow_id, template_tag, source_field, transform_type,
			   transform_config, default_value, created_at
		FROM workflow_field_mappings
		WHERE workflow_id = $1
		ORDER BY template_tag ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewRecordError("ListByWorkflow", "field mapping", workflowID, err)
	}
	defer closeRows(ctx, r.logger, rows)

	mappings := make([]*models.WorkflowFieldMapping, 0)

	for rows.Next() {
		var (
			mapping       models.WorkflowFieldMapping
			transformType sql.NullString
			defaultValue  sql.NullString
			configJSON    []byte
		)

		err := rows.Scan(
			&mapping.ID,
			&mapping.WorkflowID,
			&mapping.TemplateTag,
			&mapping.SourceField,
			&transformType,
			&configJSON,
			&defaultValue,
			&mapping.CreatedAt,
		)
		if err != nil {
			return nil, persistence.NewRecordError("ListByWorkflow", "field mapping", workflowID, err)
		}

		mapping.TransformType = transformType.String
		if defaultValue.Valid {
			mapping.DefaultValue = &defaultValue.String
		}

		if err := unmarshalJSON("transform config", configJSON, &mapping.TransformConfig); err != nil {
			return nil, err
		}

		mappings = append(mappings, &mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field mappings: %w", err)
	}

	return mappings, nil
}

// ReplaceForWorkflow deletes and re-inserts the mapping set in one transaction.
func (r *FieldMappingRepository) ReplaceForWorkflow(ctx context.Context, workflowID string, mappings []*models.WorkflowFieldMapping) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_field_mappings WHERE workflow_id = $1", workflowID)
	if err != nil {
		return persistence.NewRecordError("ReplaceForWorkflow", "field mapping", workflowID, err)
	}

	now := time.Now().UTC()

	for _, mapping := range mappings {
		if mapping.ID == "" {
			mapping.ID = uuid.NewString()
		}

		if mapping.CreatedAt.IsZero() {
			mapping.CreatedAt = now
		}

		mapping.WorkflowID = workflowID
		mapping.TemplateTag = strings.TrimSpace(mapping.TemplateTag)

		configJSON, marshalErr := marshalJSON("transform config", mapping.TransformConfig)
		if marshalErr != nil {
			err = marshalErr

			return err
		}

		var defaultValue sql.NullString
		if mapping.DefaultValue != nil {
			defaultValue = sql.NullString{String: *mapping.DefaultValue, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_field_mappings (
				id, workflow_id, template_tag, source_field, transform_type,
				transform_config, default_value, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			mapping.ID,
			workflowID,
			mapping.TemplateTag,
			mapping.SourceField,
			nullString(mapping.TransformType),
			configJSON,
			defaultValue,
			mapping.CreatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				err = fmt.Errorf("%w: %s", persistence.ErrDuplicateMapping, mapping.TemplateTag)
			}

			return persistence.NewRecordError("ReplaceForWorkflow", "field mapping", workflowID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit field mappings: %w", err)
	}

	return nil
}
