package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/documents/memory"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/persistence/file"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/signatures"
	"github.com/dukex/docflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu     sync.Mutex
	inputs []services.TriggerInput
}

func (q *fakeQueue) Enqueue(_ context.Context, input services.TriggerInput) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.inputs = append(q.inputs, input)

	return nil
}

type testApp struct {
	app         *fiber.App
	handlers    *web.APIHandlers
	persistence persistence.Persistence
	editor      *memory.Editor
	now         time.Time
	mu          sync.Mutex
}

func (a *testApp) clock() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.now
}

func (a *testApp) advance(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.now = a.now.Add(d)
}

// setupTestApp stores org-1, tpl-1 and the active workflow wf-1 mapping client_name.
func setupTestApp(t *testing.T, queue web.Enqueuer) *testApp {
	t.Helper()

	ctx := t.Context()
	logger := slog.New(slog.DiscardHandler)
	p := file.NewPersistence(t.TempDir())

	editor := memory.NewEditor("")
	editor.PutTemplate("tpl-file", "Contract for {{client_name}}")

	editors := documents.NewRegistry()
	editors.Register(models.FileKindDocument, editor)

	require.NoError(t, p.OrganizationRepository().Save(ctx, &models.Organization{ID: "org-1", Name: "Acme", DocumentsLimit: 2}))
	require.NoError(t, p.TemplateRepository().Save(ctx, &models.Template{
		ID: "tpl-1", OrganizationID: "org-1", Name: "Contract", BackendFileID: "tpl-file", FileKind: models.FileKindDocument,
	}))
	require.NoError(t, p.WorkflowRepository().Save(ctx, &models.Workflow{
		ID: "wf-1", OrganizationID: "org-1", Name: "Contracts", Status: models.WorkflowStatusActive,
		SourceObjectType: "deal", TemplateID: "tpl-1",
	}))
	require.NoError(t, p.FieldMappingRepository().ReplaceForWorkflow(ctx, "wf-1", []*models.WorkflowFieldMapping{
		{TemplateTag: "client_name", SourceField: "contact.name"},
	}))

	a := &testApp{persistence: p, editor: editor, now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}

	providers := signatures.NewRegistry()
	providers.Register(signatures.ProviderClickSign, signatures.NewClickSign("", "token", nil))

	generator := services.NewGenerator(p, editors, logger,
		services.WithClock(a.clock),
		services.WithSignatures(providers),
		services.WithPublicURL("https://docflow.test"),
	)

	a.handlers = web.NewAPIHandlers(web.Services{
		Workflow:          services.NewWorkflow(p, logger),
		Dispatcher:        services.NewDispatcher(generator, nil, logger),
		Approvals:         services.NewApprovals(p, generator, logger),
		SignatureWebhooks: services.NewSignatureWebhooks(p, providers, logger),
		Queue:             queue,
	}, validator.New(validator.WithRequiredStructEnabled()), logger)

	a.app = fiber.New()
	a.handlers.Register(a.app)

	return a
}

func (a *testApp) do(t *testing.T, method, path string, body any, headers ...string) (int, []byte) {
	t.Helper()

	var reader io.Reader

	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)

		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

func (a *testApp) withApproval(t *testing.T) {
	t.Helper()

	workflow, err := a.persistence.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)

	workflow.PostActions = []models.PostAction{{
		ID:   "approve",
		Type: models.PostActionApproval,
		Config: map[string]any{
			"approver_email":   "boss@acme.test",
			"timeout_hours":    1,
			"message_template": "Please review the contract for {{contact.name}}",
		},
	}}
	require.NoError(t, a.persistence.WorkflowRepository().Save(t.Context(), workflow))
}

func (a *testApp) pendingToken(t *testing.T) string {
	t.Helper()

	approvals, err := a.persistence.ApprovalRepository().ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	require.NotEmpty(t, approvals)

	return approvals[0].Token
}

var acme = map[string]any{"source_object_id": "deal-1", "source_data": map[string]any{"contact": map[string]any{"name": "Acme"}}}

func decodeProblem(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	return problem
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	a := setupTestApp(t, nil)

	status, body := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestAPIHandlers_TriggerExecution(t *testing.T) {
	a := setupTestApp(t, nil)

	status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusCreated, status, string(body))

	var response web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Equal(t, models.ExecutionStatusCompleted, response.Execution.Status)
	assert.Equal(t, services.TriggerTypeManual, response.Execution.TriggerType)
	require.NotNil(t, response.Document)

	content, ok := a.editor.Content(response.Document.BackendFileID)
	require.True(t, ok)
	assert.Equal(t, "Contract for Acme", content)

	status, body = a.do(t, http.MethodGet, "/executions/"+response.Execution.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var execution models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, response.Execution.ID, execution.ID)
}

func TestAPIHandlers_TriggerExecutionErrors(t *testing.T) {
	a := setupTestApp(t, nil)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "invalid json", path: "/workflows/wf-1/executions", body: "{", status: http.StatusBadRequest, kind: "validation_error"},
		{name: "no source", path: "/workflows/wf-1/executions", body: map[string]any{}, status: http.StatusBadRequest, kind: "validation_error"},
		{name: "unknown workflow", path: "/workflows/wf-9/executions", body: acme, status: http.StatusNotFound, kind: services.CodeNotFound},
		{
			name:   "object id without connection",
			path:   "/workflows/wf-1/executions",
			body:   map[string]any{"source_object_id": "deal-1"},
			status: http.StatusUnprocessableEntity,
			kind:   services.CodeConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))
			assert.Equal(t, tt.kind, decodeProblem(t, body)["type"])
		})
	}

	status, _ := a.do(t, http.MethodGet, "/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_TriggerExecutionBackendFailureNamesRun(t *testing.T) {
	a := setupTestApp(t, nil)
	a.editor.FailOn(memory.OpCopyTemplate, errors.New("backend down"))

	status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusBadGateway, status, string(body))

	var problem web.ExecutionProblem
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, services.CodeDocumentBackend, problem.Type)
	assert.Equal(t, string(models.ExecutionStatusFailed), problem.ExecutionStatus)
	require.NotEmpty(t, problem.ExecutionID)

	status, body = a.do(t, http.MethodGet, "/executions/"+problem.ExecutionID, nil)
	require.Equal(t, http.StatusOK, status)

	var execution models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.NotEmpty(t, execution.ErrorMessage)

	status, body = a.do(t, http.MethodGet, "/workflows/wf-1/executions", nil, web.OrganizationHeader, "org-1")
	require.Equal(t, http.StatusOK, status)

	var executions []models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &executions))
	require.Len(t, executions, 1)
	assert.Equal(t, problem.ExecutionID, executions[0].ID)
}

func TestAPIHandlers_TriggerExecutionRejectedBeforeRunHasNoRun(t *testing.T) {
	a := setupTestApp(t, nil)

	status, body := a.do(t, http.MethodPost, "/workflows/wf-9/executions", acme)
	require.Equal(t, http.StatusNotFound, status)

	problem := decodeProblem(t, body)
	assert.NotContains(t, problem, "execution_id")
	assert.NotContains(t, problem, "execution_status")
}

func TestAPIHandlers_ListExecutions(t *testing.T) {
	a := setupTestApp(t, nil)

	status, _ := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		name         string
		path         string
		organization string
		status       int
	}{
		{name: "no header", path: "/workflows/wf-1/executions", status: http.StatusForbidden},
		{name: "other organization", path: "/workflows/wf-1/executions", organization: "org-2", status: http.StatusForbidden},
		{name: "unknown workflow", path: "/workflows/wf-9/executions", organization: "org-1", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.organization != "" {
				headers = []string{web.OrganizationHeader, tt.organization}
			}

			status, body := a.do(t, http.MethodGet, tt.path, nil, headers...)
			assert.Equal(t, tt.status, status, string(body))
		})
	}

	status, body := a.do(t, http.MethodGet, "/workflows/wf-1/executions", nil, web.OrganizationHeader, "org-1")
	require.Equal(t, http.StatusOK, status)

	var executions []models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &executions))
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusCompleted, executions[0].Status)
}

func TestAPIHandlers_QuotaExceeded(t *testing.T) {
	a := setupTestApp(t, nil)

	for range 2 {
		status, _ := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, services.CodeQuotaExceeded, decodeProblem(t, body)["type"])
}

func TestAPIHandlers_TriggerAsync(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		queue := &fakeQueue{}
		a := setupTestApp(t, queue)

		request := map[string]any{"source_object_id": "deal-7", "async": true, "triggered_by": "user-1"}

		status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", request)
		require.Equal(t, http.StatusAccepted, status, string(body))
		assert.Contains(t, string(body), `"status":"queued"`)

		require.Len(t, queue.inputs, 1)
		assert.Equal(t, services.TriggerInput{
			WorkflowID:     "wf-1",
			SourceObjectID: "deal-7",
			TriggeredBy:    "user-1",
			TriggerType:    services.TriggerTypeManual,
		}, queue.inputs[0])

		status, _ = a.do(t, http.MethodPost, "/workflows/wf-9/executions", request)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Len(t, queue.inputs, 1)
	})

	t.Run("in process", func(t *testing.T) {
		a := setupTestApp(t, nil)

		request := map[string]any{"source_data": map[string]any{"contact": map[string]any{"name": "Acme"}}, "async": true}

		status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", request)
		require.Equal(t, http.StatusAccepted, status, string(body))

		a.handlers.Drain()

		executions, err := a.persistence.ExecutionRepository().ListByWorkflow(t.Context(), "wf-1")
		require.NoError(t, err)
		require.Len(t, executions, 1)
		assert.Equal(t, models.ExecutionStatusCompleted, executions[0].Status)
	})
}

func TestAPIHandlers_ApprovalFlow(t *testing.T) {
	a := setupTestApp(t, nil)
	a.withApproval(t)

	status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusAccepted, status, string(body))

	var triggered web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &triggered))
	assert.Equal(t, models.ExecutionStatusAwaitingApproval, triggered.Execution.Status)
	require.NotNil(t, triggered.Approval)
	assert.NotContains(t, string(body), "token")

	token := a.pendingToken(t)

	status, body = a.do(t, http.MethodGet, "/approvals/"+token, nil)
	require.Equal(t, http.StatusOK, status)

	var approval web.ApprovalResponse
	require.NoError(t, json.Unmarshal(body, &approval))
	assert.Equal(t, models.ApprovalStatusPending, approval.Status)
	assert.Equal(t, "Please review the contract for Acme", approval.Message)
	assert.Equal(t, "boss@acme.test", approval.ApproverEmail)

	status, body = a.do(t, http.MethodPost, "/approvals/"+token+"/approve", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var decision web.DecisionResponse
	require.NoError(t, json.Unmarshal(body, &decision))
	assert.Equal(t, models.ApprovalStatusApproved, decision.Approval.Status)
	require.NotNil(t, decision.Execution)
	assert.Equal(t, models.ExecutionStatusCompleted, decision.Execution.Execution.Status)
	assert.Empty(t, decision.ResumeError)

	status, body = a.do(t, http.MethodPost, "/approvals/"+token+"/approve", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, services.CodeAlreadyDecided, decodeProblem(t, body)["type"])

	status, _ = a.do(t, http.MethodPost, "/approvals/"+token+"/reject", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.do(t, http.MethodGet, "/approvals/unknown-token", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_RejectApproval(t *testing.T) {
	a := setupTestApp(t, nil)
	a.withApproval(t)

	status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusAccepted, status)

	var triggered web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &triggered))

	token := a.pendingToken(t)

	status, body = a.do(t, http.MethodPost, "/approvals/"+token+"/reject", map[string]any{"comment": "wrong amount"})
	require.Equal(t, http.StatusOK, status, string(body))

	var decision web.DecisionResponse
	require.NoError(t, json.Unmarshal(body, &decision))
	assert.Equal(t, models.ApprovalStatusRejected, decision.Approval.Status)
	assert.Equal(t, "wrong amount", decision.Approval.Comment)
	assert.Nil(t, decision.Execution)

	status, body = a.do(t, http.MethodGet, "/executions/"+triggered.Execution.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var execution models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "workflow rejected: wrong amount", execution.ErrorMessage)
}

func TestAPIHandlers_ExpiredApproval(t *testing.T) {
	a := setupTestApp(t, nil)
	a.withApproval(t)

	status, _ := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusAccepted, status)

	token := a.pendingToken(t)
	a.advance(2 * time.Hour)

	status, body := a.do(t, http.MethodPost, "/approvals/"+token+"/approve", nil)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, services.CodeExpired, decodeProblem(t, body)["type"])

	status, body = a.do(t, http.MethodGet, "/approvals/"+token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"expired"`)
}

func TestAPIHandlers_OverdueAutoApproval(t *testing.T) {
	a := setupTestApp(t, nil)
	a.withApproval(t)

	workflow, err := a.persistence.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)

	workflow.PostActions[0].Config["auto_approve_on_timeout"] = true
	require.NoError(t, a.persistence.WorkflowRepository().Save(t.Context(), workflow))

	status, _ := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusAccepted, status)

	token := a.pendingToken(t)
	a.advance(2 * time.Hour)

	status, body := a.do(t, http.MethodPost, "/approvals/"+token+"/approve", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var decision web.DecisionResponse
	require.NoError(t, json.Unmarshal(body, &decision))
	assert.Equal(t, models.ApprovalStatusApproved, decision.Approval.Status)
	require.NotNil(t, decision.Execution)
	assert.Equal(t, models.ExecutionStatusCompleted, decision.Execution.Execution.Status)

	status, body = a.do(t, http.MethodPost, "/approvals/"+token+"/reject", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, services.CodeAlreadyDecided, decodeProblem(t, body)["type"])
}

func TestAPIHandlers_ListApprovals(t *testing.T) {
	a := setupTestApp(t, nil)
	a.withApproval(t)

	status, _ := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusAccepted, status)

	status, _ = a.do(t, http.MethodGet, "/workflows/wf-1/approvals", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(t, http.MethodGet, "/workflows/wf-1/approvals", nil, web.OrganizationHeader, "org-2")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(t, http.MethodGet, "/workflows/wf-9/approvals", nil, web.OrganizationHeader, "org-1")
	assert.Equal(t, http.StatusNotFound, status)

	status, body := a.do(t, http.MethodGet, "/workflows/wf-1/approvals", nil, web.OrganizationHeader, "org-1")
	require.Equal(t, http.StatusOK, status)

	var approvals []web.ApprovalResponse
	require.NoError(t, json.Unmarshal(body, &approvals))
	require.Len(t, approvals, 1)
	assert.Equal(t, models.ApprovalStatusPending, approvals[0].Status)
}

func TestAPIHandlers_ReplaceFieldMappings(t *testing.T) {
	a := setupTestApp(t, nil)

	request := web.ReplaceFieldMappingsRequest{Mappings: []web.FieldMappingRequest{
		{TemplateTag: "client_name", SourceField: "company.name", TransformType: "uppercase"},
		{TemplateTag: "total", SourceField: "deal.amount", TransformType: "currency"},
	}}

	status, body := a.do(t, http.MethodPut, "/workflows/wf-1/field-mappings", request)
	require.Equal(t, http.StatusOK, status, string(body))

	var stored []models.WorkflowFieldMapping
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Len(t, stored, 2)

	tests := []struct {
		name    string
		request web.ReplaceFieldMappingsRequest
	}{
		{name: "missing source field", request: web.ReplaceFieldMappingsRequest{Mappings: []web.FieldMappingRequest{{TemplateTag: "a"}}}},
		{name: "duplicate tag", request: web.ReplaceFieldMappingsRequest{Mappings: []web.FieldMappingRequest{
			{TemplateTag: "a", SourceField: "x"},
			{TemplateTag: "a", SourceField: "y"},
		}}},
		{name: "unknown transform", request: web.ReplaceFieldMappingsRequest{Mappings: []web.FieldMappingRequest{
			{TemplateTag: "a", SourceField: "x", TransformType: "shout"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := a.do(t, http.MethodPut, "/workflows/wf-1/field-mappings", tt.request)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestAPIHandlers_ActivateWorkflow(t *testing.T) {
	a := setupTestApp(t, nil)

	workflow, err := a.persistence.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)

	workflow.Status = models.WorkflowStatusDraft
	require.NoError(t, a.persistence.WorkflowRepository().Save(t.Context(), workflow))

	status, body := a.do(t, http.MethodPost, "/workflows/wf-1/activate", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"status":"active"`)

	workflow.TemplateID = "tpl-missing"
	require.NoError(t, a.persistence.WorkflowRepository().Save(t.Context(), workflow))

	status, body = a.do(t, http.MethodPost, "/workflows/wf-1/activate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, services.CodeConfiguration, decodeProblem(t, body)["type"])
}

func TestAPIHandlers_SignatureWebhook(t *testing.T) {
	a := setupTestApp(t, nil)

	status, body := a.do(t, http.MethodPost, "/workflows/wf-1/executions", acme)
	require.Equal(t, http.StatusCreated, status)

	var triggered web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &triggered))

	require.NoError(t, a.persistence.DocumentRepository().UpdateSignature(t.Context(), triggered.Document.ID, models.SignatureUpdate{
		Provider:  signatures.ProviderClickSign,
		RequestID: "doc-key",
		Status:    models.DocumentStatusSentForSignature,
		UpdatedAt: time.Now(),
	}))

	tests := []struct {
		name     string
		provider string
		payload  string
		status   int
		contains string
	}{
		{name: "signed", provider: "clicksign", payload: `{"event":{"name":"close"},"document":{"key":"doc-key"}}`, status: http.StatusOK, contains: `"document_status":"signed"`},
		{name: "ignored", provider: "clicksign", payload: `{"event":{"name":"add_signer"},"document":{"key":"doc-key"}}`, status: http.StatusOK, contains: `"status":"ignored"`},
		{name: "garbage", provider: "clicksign", payload: `<xml/>`, status: http.StatusBadRequest},
		{name: "unknown document", provider: "clicksign", payload: `{"event":{"name":"close"},"document":{"key":"other"}}`, status: http.StatusNotFound},
		{name: "unknown provider", provider: "docusign", payload: `{}`, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(t, http.MethodPost, "/webhooks/signatures/"+tt.provider, tt.payload)
			assert.Equal(t, tt.status, status, string(body))

			if tt.contains != "" {
				assert.Contains(t, string(body), tt.contains)
			}
		})
	}
}
