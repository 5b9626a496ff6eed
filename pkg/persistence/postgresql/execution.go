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

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
			id
		  , workflow_id
		  , organization_id
		  , trigger_type
		  , trigger_data
		  , triggered_by
		  , source_object_id
		  , status
		  , error_message
		  , started_at
		  , completed_at
		  , duration_ms
		  , generated_document_id`

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerDataJSON, err := marshalJSON("trigger data", execution.TriggerData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.OrganizationID,
		execution.TriggerType,
		triggerDataJSON,
		nullString(execution.TriggeredBy),
		nullString(execution.SourceObjectID),
		execution.Status,
		nullString(execution.ErrorMessage),
		execution.StartedAt,
		execution.CompletedAt,
		execution.DurationMs,
		execution.GeneratedDocumentID,
	)
	if err != nil {
		return persistence.NewRecordError("Create", "execution", execution.ID, err)
	}

	return nil
}

// Update writes the mutable fields only while the stored execution is not terminal.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	query := `
		UPDATE workflow_executions
		SET status = $2,
			error_message = $3,
			completed_at = $4,
			duration_ms = $5,
			generated_document_id = $6
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		nullString(execution.ErrorMessage),
		execution.CompletedAt,
		execution.DurationMs,
		execution.GeneratedDocumentID,
	)
	if err != nil {
		return persistence.NewRecordError("Update", "execution", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRecordError("Update", "execution", execution.ID, err)
	}

	if affected > 0 {
		return nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM workflow_executions WHERE id = $1)", execution.ID,
	).Scan(&exists)
	if err != nil {
		return persistence.NewRecordError("Update", "execution", execution.ID, err)
	}

	if !exists {
		return persistence.NewRecordError("Update", "execution", execution.ID, persistence.ErrExecutionNotFound)
	}

	return persistence.NewRecordError("Update", "execution", execution.ID, persistence.ErrExecutionFinalized)
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewRecordError("ListByWorkflow", "execution", workflowID, err)
	}
	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, persistence.NewRecordError("ListByWorkflow", "execution", workflowID, err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution                                 models.WorkflowExecution
		triggerDataJSON                           []byte
		triggeredBy, sourceObjectID, errorMessage sql.NullString
		completedAt                               sql.NullTime
		durationMs                                sql.NullInt64
		generatedDocumentID                       sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.OrganizationID,
		&execution.TriggerType,
		&triggerDataJSON,
		&triggeredBy,
		&sourceObjectID,
		&execution.Status,
		&errorMessage,
		&execution.StartedAt,
		&completedAt,
		&durationMs,
		&generatedDocumentID,
	)
	if err != nil {
		return nil, err
	}

	execution.TriggeredBy = triggeredBy.String
	execution.SourceObjectID = sourceObjectID.String
	execution.ErrorMessage = errorMessage.String

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	if durationMs.Valid {
		execution.DurationMs = &durationMs.Int64
	}

	if generatedDocumentID.Valid {
		execution.GeneratedDocumentID = &generatedDocumentID.String
	}

	if err := unmarshalJSON("trigger data", triggerDataJSON, &execution.TriggerData); err != nil {
		return nil, err
	}

	return &execution, nil
}
