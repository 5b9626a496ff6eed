package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// ExpiredMessage is recorded on executions whose approval timed out.
	ExpiredMessage = "approval expired"

	rejectedMessage  = "workflow rejected: %s"
	noCommentMessage = "no comment"
)

// Decision is the outcome of an approve or reject call.
type Decision struct {
	Approval *models.WorkflowApproval
	// Resumed is the continued run after an approval, nil after a rejection.
	Resumed *Result
	// ResumeErr reports a failed resume. The decision stands regardless.
	ResumeErr error
}

// Approvals decides pending approvals. The token is the only credential.
type Approvals struct {
	persistence persistence.Persistence
	generator   *Generator
	logger      *slog.Logger
}

// NewApprovals creates the approval service. It resumes runs through generator and
// shares its clock, tracer and event publisher.
func NewApprovals(p persistence.Persistence, generator *Generator, logger *slog.Logger) *Approvals {
	return &Approvals{
		persistence: p,
		generator:   generator,
		logger:      logger.With("module", "approvals"),
	}
}

func (a *Approvals) now() time.Time {
	return a.generator.now().UTC()
}

// Status returns the approval behind token. It never changes state.
func (a *Approvals) Status(ctx context.Context, token string) (*models.WorkflowApproval, error) {
	const op = "ApprovalStatus"

	if token == "" {
		return nil, notFoundError(op, "approval token is empty", persistence.ErrApprovalNotFound)
	}

	approval, err := a.persistence.ApprovalRepository().GetByToken(ctx, token)
	if err != nil {
		return nil, classify(op, err, ErrNotFound)
	}

	return approval, nil
}

// Approve approves a pending approval and resumes its execution. An overdue approval
// configured to auto-approve is settled the way the sweeper would and that decision is
// returned.
func (a *Approvals) Approve(ctx context.Context, token string) (*Decision, error) {
	const op = "Approve"

	ctx, span := otelhelper.StartSpan(ctx, a.generator.tracer, "approvals.approve")
	defer span.End()

	approval, settled, err := a.pending(ctx, op, token)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if settled != nil {
		span.SetAttributes(attribute.String(otelhelper.ApprovalIDKey, settled.Approval.ID))

		return settled, nil
	}

	span.SetAttributes(attribute.String(otelhelper.ApprovalIDKey, approval.ID))

	decision, err := a.approve(ctx, op, approval)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return decision, nil
}

// approve moves approval to approved and resumes the run. Resume failures are
// reported on the decision, the approval itself stays approved.
func (a *Approvals) approve(ctx context.Context, op string, approval *models.WorkflowApproval) (*Decision, error) {
	decided, err := a.transition(ctx, op, approval, models.ApprovalTransition{
		Status: models.ApprovalStatusApproved,
		At:     a.now(),
	})
	if err != nil {
		return nil, err
	}

	decision := &Decision{Approval: decided}
	decision.Resumed, decision.ResumeErr = a.generator.Resume(ctx, decided)

	if decision.ResumeErr != nil {
		a.logger.ErrorContext(ctx, "resume after approval failed",
			"approval_id", decided.ID, "execution_id", decided.ExecutionID, "error", decision.ResumeErr)
	}

	return decision, nil
}

// Reject rejects a pending approval and fails its execution with the comment.
func (a *Approvals) Reject(ctx context.Context, token, comment string) (*Decision, error) {
	const op = "Reject"

	ctx, span := otelhelper.StartSpan(ctx, a.generator.tracer, "approvals.reject")
	defer span.End()

	approval, settled, err := a.pending(ctx, op, token)
	if err == nil && settled != nil {
		err = newError(op, ErrAlreadyDecided, CodeAlreadyDecided, "approval was auto-approved on timeout", nil)
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.ApprovalIDKey, approval.ID))

	decided, err := a.transition(ctx, op, approval, models.ApprovalTransition{
		Status:  models.ApprovalStatusRejected,
		At:      a.now(),
		Comment: comment,
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := a.generator.failExecution(ctx, decided.ExecutionID, RejectionMessage(comment), "approval_rejected"); err != nil {
		a.logger.ErrorContext(ctx, "failed to fail rejected execution",
			"approval_id", decided.ID, "execution_id", decided.ExecutionID, "error", err)
	}

	return &Decision{Approval: decided}, nil
}

// RejectionMessage is the execution error recorded for a rejection.
func RejectionMessage(comment string) string {
	if comment == "" {
		comment = noCommentMessage
	}

	return fmt.Sprintf(rejectedMessage, comment)
}

// ListByWorkflow returns the approvals of a workflow newest first. organizationID must
// own the workflow.
func (a *Approvals) ListByWorkflow(ctx context.Context, workflowID, organizationID string) ([]*models.WorkflowApproval, error) {
	const op = "ListApprovals"

	if _, err := ownedWorkflow(ctx, a.persistence, op, workflowID, organizationID); err != nil {
		return nil, err
	}

	approvals, err := a.persistence.ApprovalRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, persistenceError(op, err)
	}

	return approvals, nil
}

// ExpireOverdue settles every pending approval past its expiry: auto-approving ones are
// approved and resumed, the others expire and fail their execution. Approvals decided
// concurrently are skipped. It returns how many approvals it settled.
func (a *Approvals) ExpireOverdue(ctx context.Context) (int, error) {
	const op = "ExpireOverdue"

	overdue, err := a.persistence.ApprovalRepository().ListExpiredPending(ctx, a.now())
	if err != nil {
		return 0, persistenceError(op, err)
	}

	settled := 0

	for _, approval := range overdue {
		logger := a.logger.With("approval_id", approval.ID, "execution_id", approval.ExecutionID)

		if _, err := a.settleOverdue(ctx, op, approval); err != nil {
			logger.WarnContext(ctx, "skipping overdue approval", "error", err)

			continue
		}

		settled++
	}

	return settled, nil
}

// pending loads the approval behind token and checks it can still be decided. An
// overdue approval is settled on the spot: auto-approving ones are approved and their
// decision returned, the others expire and ErrExpired is returned.
func (a *Approvals) pending(ctx context.Context, op, token string) (*models.WorkflowApproval, *Decision, error) {
	approval, err := a.Status(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	if !approval.IsPending() {
		return nil, nil, newError(op, ErrAlreadyDecided, CodeAlreadyDecided,
			fmt.Sprintf("approval was already %s", approval.Status), nil)
	}

	if !approval.IsOverdue(a.now()) {
		return approval, nil, nil
	}

	settled, err := a.settleOverdue(ctx, op, approval)
	if err != nil {
		return nil, nil, err
	}

	if settled != nil {
		return approval, settled, nil
	}

	return nil, nil, newError(op, ErrExpired, CodeExpired,
		fmt.Sprintf("approval expired at %s", approval.ExpiresAt.UTC().Format(time.RFC3339)), nil)
}

// settleOverdue applies the timeout policy of an overdue approval. The decision is nil
// when the approval expired.
func (a *Approvals) settleOverdue(ctx context.Context, op string, approval *models.WorkflowApproval) (*Decision, error) {
	if approval.AutoApproveOnTimeout {
		return a.approve(ctx, op, approval)
	}

	return nil, a.expire(ctx, op, approval)
}

func (a *Approvals) expire(ctx context.Context, op string, approval *models.WorkflowApproval) error {
	decided, err := a.transition(ctx, op, approval, models.ApprovalTransition{
		Status: models.ApprovalStatusExpired,
		At:     a.now(),
	})
	if err != nil {
		return err
	}

	if err := a.generator.failExecution(ctx, decided.ExecutionID, ExpiredMessage, CodeExpired); err != nil {
		a.logger.ErrorContext(ctx, "failed to fail expired execution",
			"approval_id", decided.ID, "execution_id", decided.ExecutionID, "error", err)
	}

	return nil
}

// transition is the single place approvals change status. Losing the compare-and-set
// to a concurrent decision surfaces as ErrAlreadyDecided.
func (a *Approvals) transition(
	ctx context.Context,
	op string,
	approval *models.WorkflowApproval,
	transition models.ApprovalTransition,
) (*models.WorkflowApproval, error) {
	decided, err := a.persistence.ApprovalRepository().Transition(ctx, approval.ID, transition)
	if err != nil {
		if persistence.IsApprovalNotPending(err) {
			return nil, newError(op, ErrAlreadyDecided, CodeAlreadyDecided, "approval was decided concurrently", err)
		}

		return nil, classify(op, err, ErrNotFound)
	}

	a.logger.InfoContext(ctx, "approval decided",
		"approval_id", decided.ID, "execution_id", decided.ExecutionID, "status", decided.Status)

	a.generator.publish(ctx, decided.ID, events.ApprovalDecided{
		BaseEvent: events.BaseEvent{
			ID:             a.generator.eventID(),
			Type:           events.ApprovalDecidedEvent,
			Timestamp:      a.now(),
			WorkflowID:     decided.WorkflowID,
			OrganizationID: decided.Context.OrganizationID,
		},
		ApprovalID:  decided.ID,
		ExecutionID: decided.ExecutionID,
		Status:      string(decided.Status),
		Comment:     decided.Comment,
		DecidedAt:   transition.At,
	})

	return decided, nil
}
