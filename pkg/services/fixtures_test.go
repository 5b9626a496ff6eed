package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/documents/memory"
	"github.com/dukex/docflow/pkg/mocks"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/persistence/file"
	"github.com/dukex/docflow/pkg/signatures"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fakeSigner struct {
	mu       sync.Mutex
	requests []signatures.Request
}

func (f *fakeSigner) SendForSignature(_ context.Context, request signatures.Request) (*signatures.Receipt, error) {
	if len(request.Signers) == 0 {
		return nil, signatures.ErrNoSigners
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, request)

	return &signatures.Receipt{RequestID: "sig-" + request.DocumentID}, nil
}

func (f *fakeSigner) GetStatus(context.Context, string) (models.DocumentStatus, error) {
	return models.DocumentStatusSentForSignature, nil
}

func (f *fakeSigner) HandleWebhook(context.Context, []byte) (*models.SignatureUpdate, error) {
	return nil, nil
}

type fixture struct {
	p         persistence.Persistence
	editor    *memory.Editor
	bus       *mocks.MockEventBus
	signer    *fakeSigner
	clock     *fakeClock
	generator *Generator
	approvals *Approvals
	workflow  *models.Workflow
}

// newFixture stores org-1 (limit 100), template tpl-1 and workflow wf-1 mapping
// client_name and amount, backed by file persistence and the memory editor.
func newFixture(t *testing.T, opts ...GeneratorOption) *fixture {
	t.Helper()

	ctx := t.Context()
	p := file.NewPersistence(t.TempDir())

	editor := memory.NewEditor("")
	editor.PutTemplate("tpl-file", "Proposal for {{client_name}} worth {{ amount }}")

	editors := documents.NewRegistry()
	editors.Register(models.FileKindDocument, editor)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	signer := &fakeSigner{}
	signers := signatures.NewRegistry()
	signers.Register("fake", signer)

	clock := &fakeClock{now: testStart}

	require.NoError(t, p.OrganizationRepository().Save(ctx, &models.Organization{
		ID: "org-1", Name: "Acme Corp", DocumentsLimit: 100,
	}))
	require.NoError(t, p.TemplateRepository().Save(ctx, &models.Template{
		ID: "tpl-1", OrganizationID: "org-1", Name: "Proposal", BackendFileID: "tpl-file",
		FileKind: models.FileKindDocument, Version: 3,
	}))

	workflow := &models.Workflow{
		ID:                 "wf-1",
		OrganizationID:     "org-1",
		Name:               "Proposals",
		Status:             models.WorkflowStatusActive,
		SourceObjectType:   "deal",
		TemplateID:         "tpl-1",
		OutputFolderID:     "folder-1",
		OutputNameTemplate: "Proposal {{client_name}} {{date}}",
	}
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))
	require.NoError(t, p.FieldMappingRepository().ReplaceForWorkflow(ctx, workflow.ID, []*models.WorkflowFieldMapping{
		{TemplateTag: "client_name", SourceField: "contact.name"},
		{TemplateTag: "amount", SourceField: "deal.amount", TransformType: "currency"},
	}))

	logger := slog.New(slog.DiscardHandler)

	options := append([]GeneratorOption{
		WithPublisher(bus),
		WithSignatures(signers),
		WithClock(clock.Now),
		WithPublicURL("https://docflow.test/"),
	}, opts...)

	generator := NewGenerator(p, editors, logger, options...)

	return &fixture{
		p:         p,
		editor:    editor,
		bus:       bus,
		signer:    signer,
		clock:     clock,
		generator: generator,
		approvals: NewApprovals(p, generator, logger),
		workflow:  workflow,
	}
}

// update applies change to the stored workflow.
func (f *fixture) update(t *testing.T, change func(*models.Workflow)) {
	t.Helper()

	change(f.workflow)
	require.NoError(t, f.p.WorkflowRepository().Save(t.Context(), f.workflow))
}

func (f *fixture) request() Request {
	return Request{
		WorkflowID:     f.workflow.ID,
		SourceObjectID: "deal-42",
		SourceData: map[string]any{
			"contact": map[string]any{"name": "Acme"},
			"deal":    map[string]any{"amount": 1234.5},
		},
		TriggeredBy: "user-1",
	}
}

func (f *fixture) documentsUsed(t *testing.T) int {
	t.Helper()

	org, err := f.p.OrganizationRepository().GetByID(t.Context(), "org-1")
	require.NoError(t, err)

	return org.DocumentsUsed
}

func (f *fixture) storedExecution(t *testing.T, id string) *models.WorkflowExecution {
	t.Helper()

	execution, err := f.p.ExecutionRepository().GetByID(t.Context(), id)
	require.NoError(t, err)

	return execution
}

func approvalAction(id string, config map[string]any) models.PostAction {
	if config == nil {
		config = map[string]any{}
	}

	if _, ok := config["approver_email"]; !ok {
		config["approver_email"] = "boss@acme.test"
	}

	return models.PostAction{ID: id, Type: models.PostActionApproval, Config: config}
}
