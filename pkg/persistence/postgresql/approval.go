package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// ApprovalRepository handles workflow approval database operations.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

const approvalColumns = `
			id
		  , execution_id
		  , workflow_id
		  , node_id
		  , execution_context
		  , approver_email
		  , approval_token
		  , status
		  , message_template
		  , timeout_hours
		  , expires_at
		  , document_url
		  , pdf_url
		  , auto_approve_on_timeout
		  , created_at
		  , approved_at
		  , rejected_at
		  , expired_at
		  , comment`

func (r *ApprovalRepository) Create(ctx context.Context, approval *models.WorkflowApproval) error {
	contextJSON, err := marshalJSON("execution context", approval.Context)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_approvals (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = r.db.ExecContext(ctx, query,
		approval.ID,
		approval.ExecutionID,
		approval.WorkflowID,
		approval.NodeID,
		contextJSON,
		approval.ApproverEmail,
		approval.Token,
		approval.Status,
		nullString(approval.MessageTemplate),
		approval.TimeoutHours,
		approval.ExpiresAt,
		nullString(approval.DocumentURL),
		nullString(approval.PDFURL),
		approval.AutoApproveOnTimeout,
		approval.CreatedAt,
		approval.ApprovedAt,
		approval.RejectedAt,
		approval.ExpiredAt,
		nullString(approval.Comment),
	)
	if err != nil {
		return persistence.NewRecordError("Create", "approval", approval.ID, err)
	}

	return nil
}

func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.WorkflowApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM workflow_approvals WHERE id = $1`

	return r.getOne(ctx, "GetByID", id, query, id)
}

func (r *ApprovalRepository) GetByToken(ctx context.Context, token string) (*models.WorkflowApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM workflow_approvals WHERE approval_token = $1`

	return r.getOne(ctx, "GetByToken", "", query, token)
}

func (r *ApprovalRepository) getOne(ctx context.Context, op, id, query string, args ...any) (*models.WorkflowApproval, error) {
	approval, err := r.scanApproval(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError(op, "approval", id, persistence.ErrApprovalNotFound)
		}

		return nil, persistence.NewRecordError(op, "approval", id, err)
	}

	return approval, nil
}

func (r *ApprovalRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowApproval, error) {
	query := `SELECT ` + approvalColumns + `
		FROM workflow_approvals
		WHERE workflow_id = $1
		ORDER BY created_at DESC`

	return r.list(ctx, "ListByWorkflow", query, workflowID)
}

func (r *ApprovalRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]*models.WorkflowApproval, error) {
	query := `SELECT ` + approvalColumns + `
		FROM workflow_approvals
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC`

	return r.list(ctx, "ListExpiredPending", query, now.UTC())
}

func (r *ApprovalRepository) list(ctx context.Context, op, query string, args ...any) ([]*models.WorkflowApproval, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRecordError(op, "approval", "", err)
	}
	defer closeRows(ctx, r.logger, rows)

	approvals := make([]*models.WorkflowApproval, 0)

	for rows.Next() {
		approval, err := r.scanApproval(rows)
		if err != nil {
			return nil, persistence.NewRecordError(op, "approval", "", err)
		}

		approvals = append(approvals, approval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}

	return approvals, nil
}

// Transition is a single conditional UPDATE; only one concurrent caller can match status = 'pending'.
func (r *ApprovalRepository) Transition(ctx context.Context, id string, transition models.ApprovalTransition) (*models.WorkflowApproval, error) {
	at := transition.At.UTC()

	var comment sql.NullString
	if transition.Status == models.ApprovalStatusRejected {
		comment = nullString(transition.Comment)
	}

	query := `
		UPDATE workflow_approvals
		SET status = $2::varchar,
			approved_at = CASE WHEN $2::varchar = 'approved' THEN $3::timestamptz ELSE approved_at END,
			rejected_at = CASE WHEN $2::varchar = 'rejected' THEN $3::timestamptz ELSE rejected_at END,
			expired_at = CASE WHEN $2::varchar = 'expired' THEN $3::timestamptz ELSE expired_at END,
			comment = COALESCE($4::text, comment)
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + approvalColumns

	approval, err := r.scanApproval(r.db.QueryRowContext(ctx, query, id, string(transition.Status), at, comment))
	if err == nil {
		return approval, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("Transition", "approval", id, err)
	}

	var exists bool

	err = r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM workflow_approvals WHERE id = $1)", id,
	).Scan(&exists)
	if err != nil {
		return nil, persistence.NewRecordError("Transition", "approval", id, err)
	}

	if !exists {
		return nil, persistence.NewRecordError("Transition", "approval", id, persistence.ErrApprovalNotFound)
	}

	return nil, persistence.NewRecordError("Transition", "approval", id, persistence.ErrApprovalNotPending)
}

func (r *ApprovalRepository) scanApproval(row scanner) (*models.WorkflowApproval, error) {
	var (
		approval                             models.WorkflowApproval
		contextJSON                          []byte
		messageTemplate, documentURL, pdfURL sql.NullString
		comment                              sql.NullString
		approvedAt, rejectedAt, expiredAt    sql.NullTime
	)

	err := row.Scan(
		&approval.ID,
		&approval.ExecutionID,
		&approval.WorkflowID,
		&approval.NodeID,
		&contextJSON,
		&approval.ApproverEmail,
		&approval.Token,
		&approval.Status,
		&messageTemplate,
		&approval.TimeoutHours,
		&approval.ExpiresAt,
		&documentURL,
		&pdfURL,
		&approval.AutoApproveOnTimeout,
		&approval.CreatedAt,
		&approvedAt,
		&rejectedAt,
		&expiredAt,
		&comment,
	)
	if err != nil {
		return nil, err
	}

	approval.MessageTemplate = messageTemplate.String
	approval.DocumentURL = documentURL.String
	approval.PDFURL = pdfURL.String
	approval.Comment = comment.String

	if approvedAt.Valid {
		approval.ApprovedAt = &approvedAt.Time
	}

	if rejectedAt.Valid {
		approval.RejectedAt = &rejectedAt.Time
	}

	if expiredAt.Valid {
		approval.ExpiredAt = &expiredAt.Time
	}

	if err := unmarshalJSON("execution context", contextJSON, &approval.Context); err != nil {
		return nil, err
	}

	return &approval, nil
}
