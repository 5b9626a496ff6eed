package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/signatures"
	"github.com/dukex/docflow/pkg/tags"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TriggerTypeManual is recorded when a run does not name its trigger.
	TriggerTypeManual = "manual"

	approvalTokenBytes = 32

	nameDateLayout      = "2006-01-02"
	nameTimestampLayout = "20060102_150405"
)

// Request starts one run of a workflow.
type Request struct {
	WorkflowID     string
	SourceObjectID string
	SourceData     map[string]any
	TriggeredBy    string
	TriggerType    string
	TriggerData    map[string]any
}

// Result is what a run produced so far. Execution is set whenever the execution row was
// created, even when an error is returned alongside.
type Result struct {
	Execution *models.WorkflowExecution
	Document  *models.GeneratedDocument
	Approval  *models.WorkflowApproval
}

// Awaiting reports whether the run paused on an approval.
func (r *Result) Awaiting() bool {
	return r != nil && r.Execution != nil && r.Execution.Status == models.ExecutionStatusAwaitingApproval
}

// Generator runs the document generation pipeline of a workflow.
type Generator struct {
	persistence persistence.Persistence
	editors     *documents.Registry
	signatures  *signatures.Registry
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
	strictPDF   bool
	publicURL   string
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithPublisher publishes lifecycle events. Publishing failures are only logged.
func WithPublisher(publisher eventbus.EventPublisher) GeneratorOption {
	return func(g *Generator) { g.publisher = publisher }
}

// WithSignatures enables signature post-actions.
func WithSignatures(registry *signatures.Registry) GeneratorOption {
	return func(g *Generator) { g.signatures = registry }
}

func WithTracer(tracer trace.Tracer) GeneratorOption {
	return func(g *Generator) { g.tracer = tracer }
}

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithStrictPDF makes a failed PDF export fail the run.
func WithStrictPDF(strict bool) GeneratorOption {
	return func(g *Generator) { g.strictPDF = strict }
}

// WithPublicURL sets the base of the approval links handed to approvers.
func WithPublicURL(publicURL string) GeneratorOption {
	return func(g *Generator) { g.publicURL = strings.TrimSuffix(publicURL, "/") }
}

// NewGenerator creates a generator over the given storage and document backends.
func NewGenerator(p persistence.Persistence, editors *documents.Registry, logger *slog.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		persistence: p,
		editors:     editors,
		tracer:      noop.NewTracerProvider().Tracer("docflow"),
		logger:      logger.With("module", "generator"),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate runs a workflow for one source object. Once the execution row exists every
// failure is recorded on it before being returned.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	const op = "Generate"

	if req.WorkflowID == "" {
		return nil, NewValidationError(op, "workflow_id_required", "workflow id is required", nil)
	}

	triggerType := req.TriggerType
	if triggerType == "" {
		triggerType = TriggerTypeManual
	}

	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "generator.generate",
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.TriggerTypeKey, triggerType),
	)
	defer span.End()

	workflow, err := g.persistence.WorkflowRepository().GetByID(ctx, req.WorkflowID)
	if err != nil {
		err = classify(op, err, ErrNotFound)
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !workflow.Runnable() {
		err := configurationError(op, fmt.Sprintf("workflow %s is %s", workflow.ID, workflow.Status), nil)
		otelhelper.SetError(span, err)

		return nil, err
	}

	sourceData := cloneData(req.SourceData)

	// The execution row is committed before any external call.
	execution := &models.WorkflowExecution{
		ID:             uuid.NewString(),
		WorkflowID:     workflow.ID,
		OrganizationID: workflow.OrganizationID,
		TriggerType:    triggerType,
		TriggerData:    req.TriggerData,
		TriggeredBy:    req.TriggeredBy,
		SourceObjectID: req.SourceObjectID,
		Status:         models.ExecutionStatusRunning,
		StartedAt:      g.now().UTC(),
	}

	if err := g.persistence.ExecutionRepository().Create(ctx, execution); err != nil {
		err := persistenceError(op, err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.OrganizationIDKey, execution.OrganizationID),
	)

	logger := g.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)
	logger.InfoContext(ctx, "execution started", "trigger_type", triggerType, "source_object_id", req.SourceObjectID)

	g.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:      g.baseEvent(events.ExecutionStartedEvent, workflow),
		ExecutionID:    execution.ID,
		TriggerType:    triggerType,
		TriggeredBy:    req.TriggeredBy,
		SourceObjectID: req.SourceObjectID,
	})

	result := &Result{Execution: execution}

	document, err := g.render(ctx, workflow, execution, sourceData)
	result.Document = document

	if err != nil {
		return result, g.fail(ctx, span, workflow, execution, err)
	}

	approval, err := g.runPostActions(ctx, workflow, execution, document, sourceData, 0)
	result.Approval = approval

	if err != nil {
		return result, g.fail(ctx, span, workflow, execution, err)
	}

	return result, nil
}

// render covers quota, template resolution, copy, substitution, persistence, the optional
// PDF rendition and the usage counter. A document returned with an error was already stored.
func (g *Generator) render(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.WorkflowExecution,
	sourceData map[string]any,
) (*models.GeneratedDocument, error) {
	const op = "Generate"

	organizations := g.persistence.OrganizationRepository()

	allowed, err := organizations.CanGenerateDocument(ctx, workflow.OrganizationID)
	if err != nil {
		return nil, classify(op, err, ErrConfiguration)
	}

	if !allowed {
		return nil, newError(op, ErrQuotaExceeded, CodeQuotaExceeded,
			fmt.Sprintf("organization %s reached its document limit", workflow.OrganizationID), nil)
	}

	if workflow.TemplateID == "" {
		return nil, configurationError(op, "workflow has no template", nil)
	}

	template, err := g.persistence.TemplateRepository().GetByID(ctx, workflow.TemplateID)
	if err != nil {
		return nil, classify(op, err, ErrConfiguration)
	}

	editor, err := g.editors.Get(template.FileKind)
	if err != nil {
		return nil, configurationError(op, "", err)
	}

	name := documentName(workflow, sourceData, g.now())

	file, err := editor.CopyTemplate(ctx, template.BackendFileID, name, workflow.OutputFolderID)
	if err != nil {
		return nil, backendError(op, err)
	}

	binding := tags.NewBinding(sourceData, tagMappings(workflow.FieldMappings))
	if err := editor.SubstituteTags(ctx, file.ID, binding); err != nil {
		return nil, backendError(op, err)
	}

	fileKind := template.FileKind
	if fileKind == "" {
		fileKind = models.FileKindDocument
	}

	document := &models.GeneratedDocument{
		ID:               uuid.NewString(),
		OrganizationID:   workflow.OrganizationID,
		WorkflowID:       workflow.ID,
		ExecutionID:      execution.ID,
		ConnectionID:     workflow.SourceConnectionID,
		SourceObjectType: workflow.SourceObjectType,
		SourceObjectID:   execution.SourceObjectID,
		TemplateID:       template.ID,
		TemplateVersion:  template.Version,
		Name:             name,
		FileKind:         fileKind,
		BackendFileID:    file.ID,
		BackendURL:       file.URL,
		Status:           models.DocumentStatusGenerated,
		SourceSnapshot:   sourceData,
		GeneratedBy:      execution.TriggeredBy,
		GeneratedAt:      g.now().UTC(),
	}

	if err := g.persistence.DocumentRepository().Create(ctx, document); err != nil {
		return nil, persistenceError(op, err)
	}

	if workflow.CreatePDF {
		if err := g.attachPDF(ctx, editor, workflow, document); err != nil {
			if g.strictPDF {
				return document, err
			}

			g.logger.WarnContext(ctx, "pdf export failed, document kept without pdf",
				"execution_id", execution.ID, "document_id", document.ID, "error", err)
		}
	}

	if err := organizations.IncrementDocumentCount(ctx, workflow.OrganizationID); err != nil {
		return document, persistenceError(op, err)
	}

	execution.LinkDocument(document.ID)

	g.publish(ctx, execution.ID, events.DocumentGenerated{
		BaseEvent:   g.baseEvent(events.DocumentGeneratedEvent, workflow),
		ExecutionID: execution.ID,
		DocumentID:  document.ID,
		Name:        document.Name,
		BackendURL:  document.BackendURL,
		PDFURL:      deref(document.PDFURL),
	})

	return document, nil
}

func (g *Generator) attachPDF(ctx context.Context, editor documents.Editor, workflow *models.Workflow, document *models.GeneratedDocument) error {
	const op = "ExportPDF"

	content, err := editor.ExportPDF(ctx, document.BackendFileID)
	if err != nil {
		return backendError(op, err)
	}

	file, err := editor.UploadPDF(ctx, document.Name+".pdf", workflow.OutputFolderID, content)
	if err != nil {
		return backendError(op, err)
	}

	pdf := models.PDFRendition{FileID: file.ID, URL: file.URL}
	if err := g.persistence.DocumentRepository().AttachPDF(ctx, document.ID, pdf); err != nil {
		return persistenceError(op, err)
	}

	document.PDFFileID = &pdf.FileID
	document.PDFURL = &pdf.URL

	return nil
}

// runPostActions walks post-actions from start. It stops at the first approval, which
// pauses the execution, or completes the execution after the last action.
func (g *Generator) runPostActions(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.WorkflowExecution,
	document *models.GeneratedDocument,
	sourceData map[string]any,
	start int,
) (*models.WorkflowApproval, error) {
	for index := start; index < len(workflow.PostActions); index++ {
		action := workflow.PostActions[index]

		actionCtx, span := otelhelper.StartSpan(ctx, g.tracer, "generator.post_action",
			attribute.String(otelhelper.PostActionKey, string(action.Type)),
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		)

		switch action.Type {
		case models.PostActionApproval:
			approval, err := g.openApproval(actionCtx, workflow, execution, document, sourceData, action, index)
			if err != nil {
				otelhelper.SetError(span, err)
			}

			span.End()

			return approval, err
		case models.PostActionSignature:
			if err := g.requestSignature(actionCtx, document, action); err != nil {
				otelhelper.SetError(span, err)
				span.End()

				return nil, err
			}
		default:
			err := configurationError("PostAction", fmt.Sprintf("unknown post action type %q", action.Type), nil)
			otelhelper.SetError(span, err)
			span.End()

			return nil, err
		}

		span.End()
	}

	return nil, g.complete(ctx, workflow, execution)
}

// withdrawApproval expires an approval whose execution never recorded the pause, so
// its token cannot resume a run that has failed.
func (g *Generator) withdrawApproval(ctx context.Context, approval *models.WorkflowApproval) {
	_, err := g.persistence.ApprovalRepository().Transition(ctx, approval.ID, models.ApprovalTransition{
		Status: models.ApprovalStatusExpired,
		At:     g.now(),
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to withdraw approval",
			"approval_id", approval.ID, "execution_id", approval.ExecutionID, "error", err)
	}
}

func (g *Generator) openApproval(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.WorkflowExecution,
	document *models.GeneratedDocument,
	sourceData map[string]any,
	action models.PostAction,
	index int,
) (*models.WorkflowApproval, error) {
	const op = "RequestApproval"

	cfg, err := action.ApprovalConfig()
	if err != nil {
		return nil, configurationError(op, "", err)
	}

	if cfg.ApproverEmail == "" {
		return nil, configurationError(op, fmt.Sprintf("approval action %s has no approver_email", action.ID), nil)
	}

	token, err := newApprovalToken()
	if err != nil {
		return nil, persistenceError(op, err)
	}

	now := g.now().UTC()

	approval := &models.WorkflowApproval{
		ID:          uuid.NewString(),
		ExecutionID: execution.ID,
		WorkflowID:  workflow.ID,
		NodeID:      action.ID,
		Context: models.ResumeContext{
			OrganizationID:  workflow.OrganizationID,
			DocumentID:      document.ID,
			SourceObjectID:  execution.SourceObjectID,
			SourceData:      sourceData,
			NextActionIndex: index + 1,
		},
		ApproverEmail:        cfg.ApproverEmail,
		Token:                token,
		Status:               models.ApprovalStatusPending,
		MessageTemplate:      cfg.MessageTemplate,
		TimeoutHours:         cfg.TimeoutHours,
		ExpiresAt:            now.Add(time.Duration(cfg.TimeoutHours) * time.Hour),
		DocumentURL:          document.BackendURL,
		PDFURL:               deref(document.PDFURL),
		AutoApproveOnTimeout: cfg.AutoApproveOnTimeout,
		CreatedAt:            now,
	}

	if err := g.persistence.ApprovalRepository().Create(ctx, approval); err != nil {
		return nil, persistenceError(op, err)
	}

	execution.AwaitApproval()

	if err := g.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		g.withdrawApproval(ctx, approval)

		return nil, persistenceError(op, err)
	}

	g.logger.InfoContext(ctx, "execution awaiting approval",
		"execution_id", execution.ID, "approval_id", approval.ID, "expires_at", approval.ExpiresAt)

	g.publish(ctx, execution.ID, events.ExecutionAwaitingApproval{
		BaseEvent:   g.baseEvent(events.ExecutionAwaitingApprovalEvent, workflow),
		ExecutionID: execution.ID,
		ApprovalID:  approval.ID,
		NodeID:      approval.NodeID,
	})

	links := g.approvalLinks(approval.Token)

	g.publish(ctx, approval.ID, events.ApprovalRequested{
		BaseEvent:       g.baseEvent(events.ApprovalRequestedEvent, workflow),
		ApprovalID:      approval.ID,
		ExecutionID:     execution.ID,
		ApproverEmail:   approval.ApproverEmail,
		MessageTemplate: tags.Render(approval.MessageTemplate, sourceData, nil),
		ExpiresAt:       approval.ExpiresAt,
		ApproveURL:      links.Approve,
		RejectURL:       links.Reject,
		StatusURL:       links.Status,
		DocumentURL:     approval.DocumentURL,
		PDFURL:          approval.PDFURL,
	})

	return approval, nil
}

func (g *Generator) requestSignature(ctx context.Context, document *models.GeneratedDocument, action models.PostAction) error {
	const op = "RequestSignature"

	cfg, err := action.SignatureConfig()
	if err != nil {
		return configurationError(op, "", err)
	}

	if g.signatures == nil {
		return configurationError(op, "no signature providers configured", nil)
	}

	provider, err := g.signatures.Get(cfg.Provider)
	if err != nil {
		return configurationError(op, "", err)
	}

	editor, err := g.editors.Get(document.FileKind)
	if err != nil {
		return configurationError(op, "", err)
	}

	content, err := editor.ExportPDF(ctx, document.BackendFileID)
	if err != nil {
		return backendError(op, err)
	}

	receipt, err := provider.SendForSignature(ctx, signatures.Request{
		DocumentID: document.ID,
		Name:       document.Name,
		PDF:        content,
		Signers:    cfg.Signers,
		Message:    cfg.Message,
	})
	if err != nil {
		if errors.Is(err, signatures.ErrNoSigners) {
			return configurationError(op, fmt.Sprintf("signature action %s has no signers", action.ID), err)
		}

		return backendError(op, err)
	}

	update := models.SignatureUpdate{
		Provider:  cfg.Provider,
		RequestID: receipt.RequestID,
		Status:    models.DocumentStatusSentForSignature,
		UpdatedAt: g.now().UTC(),
	}

	if err := g.persistence.DocumentRepository().UpdateSignature(ctx, document.ID, update); err != nil {
		return persistenceError(op, err)
	}

	document.Status = update.Status
	document.SignatureProvider = update.Provider
	document.SignatureRequestID = update.RequestID
	document.SignatureUpdatedAt = &update.UpdatedAt

	return nil
}

func (g *Generator) complete(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) error {
	execution.Complete(g.now())

	if err := g.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		return persistenceError("Complete", err)
	}

	g.logger.InfoContext(ctx, "execution completed",
		"execution_id", execution.ID, "duration_ms", deref(execution.DurationMs))

	g.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:   g.baseEvent(events.ExecutionCompletedEvent, workflow),
		ExecutionID: execution.ID,
		DocumentID:  deref(execution.GeneratedDocumentID),
		DurationMs:  deref(execution.DurationMs),
	})

	return nil
}

// fail records cause on the execution and returns it unchanged.
func (g *Generator) fail(ctx context.Context, span trace.Span, workflow *models.Workflow, execution *models.WorkflowExecution, cause error) error {
	otelhelper.SetError(span, cause, attribute.String(otelhelper.ExecutionIDKey, execution.ID))

	execution.Fail(g.now(), cause.Error())

	if err := g.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		g.logger.ErrorContext(ctx, "failed to record execution failure",
			"execution_id", execution.ID, "cause", cause, "error", err)
	}

	g.logger.ErrorContext(ctx, "execution failed", "execution_id", execution.ID, "error", cause)

	g.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   g.baseEvent(events.ExecutionFailedEvent, workflow),
		ExecutionID: execution.ID,
		Error:       execution.ErrorMessage,
		Code:        codeOf(cause),
		DurationMs:  deref(execution.DurationMs),
	})

	return cause
}

// Resume continues a run paused on an approved approval, starting at the action
// after the approval node and using only what the approval persisted.
func (g *Generator) Resume(ctx context.Context, approval *models.WorkflowApproval) (*Result, error) {
	const op = "Resume"

	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "generator.resume",
		attribute.String(otelhelper.ApprovalIDKey, approval.ID),
		attribute.String(otelhelper.ExecutionIDKey, approval.ExecutionID),
		attribute.String(otelhelper.WorkflowIDKey, approval.WorkflowID),
	)
	defer span.End()

	execution, err := g.persistence.ExecutionRepository().GetByID(ctx, approval.ExecutionID)
	if err != nil {
		err = classify(op, err, ErrNotFound)
		otelhelper.SetError(span, err)

		return nil, err
	}

	if execution.Status.IsTerminal() {
		err := newError(op, ErrAlreadyDecided, CodeAlreadyDecided,
			fmt.Sprintf("execution %s is already %s", execution.ID, execution.Status), persistence.ErrExecutionFinalized)
		otelhelper.SetError(span, err)

		return nil, err
	}

	result := &Result{Execution: execution, Approval: approval}

	workflow, err := g.persistence.WorkflowRepository().GetByID(ctx, approval.WorkflowID)
	if err != nil {
		workflow = &models.Workflow{ID: approval.WorkflowID, OrganizationID: approval.Context.OrganizationID}

		return result, g.fail(ctx, span, workflow, execution, classify(op, err, ErrConfiguration))
	}

	document, err := g.persistence.DocumentRepository().GetByID(ctx, approval.Context.DocumentID)
	if err != nil {
		return result, g.fail(ctx, span, workflow, execution, classify(op, err, ErrConfiguration))
	}

	result.Document = document
	execution.Status = models.ExecutionStatusRunning

	g.logger.InfoContext(ctx, "execution resumed", "execution_id", execution.ID, "approval_id", approval.ID)

	next, err := g.runPostActions(ctx, workflow, execution, document, approval.Context.SourceData, approval.Context.NextActionIndex)
	if next != nil {
		result.Approval = next
	}

	if err != nil {
		return result, g.fail(ctx, span, workflow, execution, err)
	}

	return result, nil
}

// failExecution terminates a paused execution outside of a run, after a rejection or expiry.
func (g *Generator) failExecution(ctx context.Context, executionID, message, code string) error {
	const op = "FailExecution"

	execution, err := g.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return classify(op, err, ErrNotFound)
	}

	execution.Fail(g.now(), message)

	if err := g.persistence.ExecutionRepository().Update(ctx, execution); err != nil {
		return persistenceError(op, err)
	}

	g.logger.InfoContext(ctx, "execution failed", "execution_id", execution.ID, "reason", message)

	g.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent: events.BaseEvent{
			ID:             g.eventID(),
			Type:           events.ExecutionFailedEvent,
			Timestamp:      g.now().UTC(),
			WorkflowID:     execution.WorkflowID,
			OrganizationID: execution.OrganizationID,
		},
		ExecutionID: execution.ID,
		Error:       message,
		Code:        code,
		DurationMs:  deref(execution.DurationMs),
	})

	return nil
}

func (g *Generator) publish(ctx context.Context, key string, event eventbus.Event) {
	if g.publisher == nil {
		return
	}

	if err := g.publisher.Publish(ctx, key, event); err != nil {
		g.logger.WarnContext(ctx, "failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}

func (g *Generator) eventID() string {
	return uuid.NewString()
}

func (g *Generator) baseEvent(eventType events.EventType, workflow *models.Workflow) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflow.ID)
	base.OrganizationID = workflow.OrganizationID
	base.Timestamp = g.now().UTC()

	return base
}

// ApprovalLinks are the URLs an approver acts on.
type ApprovalLinks struct {
	Approve string
	Reject  string
	Status  string
}

func (g *Generator) approvalLinks(token string) ApprovalLinks {
	status := g.publicURL + "/approvals/" + url.PathEscape(token)

	return ApprovalLinks{
		Approve: status + "/approve",
		Reject:  status + "/reject",
		Status:  status,
	}
}

// documentName renders the name template. Synthetic keys shadow source keys of the same name.
func documentName(workflow *models.Workflow, sourceData map[string]any, now time.Time) string {
	data := make(map[string]any, len(sourceData)+3)
	maps.Copy(data, sourceData)

	data["date"] = now.Format(nameDateLayout)
	data["timestamp"] = now.Format(nameTimestampLayout)
	data["object_type"] = workflow.SourceObjectType

	return tags.Render(workflow.NameTemplate(), data, nil)
}

func tagMappings(mappings []*models.WorkflowFieldMapping) []tags.Mapping {
	out := make([]tags.Mapping, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, tags.Mapping{
			Tag:             m.TemplateTag,
			Field:           m.SourceField,
			Transform:       m.TransformType,
			TransformConfig: m.TransformConfig,
			Default:         m.DefaultValue,
		})
	}

	return out
}

func newApprovalToken() (string, error) {
	buf := make([]byte, approvalTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate approval token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// cloneData deep copies nested maps and slices so the stored snapshot cannot change
// when the caller mutates its input.
func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = cloneValue(value)
	}

	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneData(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}

func codeOf(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}

	return ""
}

func deref[T any](ptr *T) T {
	var zero T
	if ptr == nil {
		return zero
	}

	return *ptr
}
