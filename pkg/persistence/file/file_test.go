package file

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	// Test with regular path
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
	assert.NoError(t, NewPersistence("./test-data").Close(t.Context()))
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	testDir := t.TempDir()
	p := NewPersistence(testDir)

	workflow := &models.Workflow{
		ID:               "wf-1",
		OrganizationID:   "org-1",
		Name:             "Proposals",
		Status:           models.WorkflowStatusDraft,
		SourceObjectType: "deal",
		TemplateID:       "tpl-1",
		PostActions: []models.PostAction{
			{ID: "approve", Type: models.PostActionApproval, Config: map[string]any{"approver_email": "a@b.c"}},
		},
	}

	require.NoError(t, p.WorkflowRepository().Save(t.Context(), workflow))
	assert.FileExists(t, filepath.Join(testDir, "workflows", "wf-1.json"))
	assert.False(t, workflow.CreatedAt.IsZero())

	require.NoError(t, p.FieldMappingRepository().ReplaceForWorkflow(t.Context(), "wf-1", []*models.WorkflowFieldMapping{
		{TemplateTag: " client_name ", SourceField: "contact.name"},
	}))

	got, err := p.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Proposals", got.Name)
	require.Len(t, got.PostActions, 1)
	require.Len(t, got.FieldMappings, 1)
	assert.Equal(t, "client_name", got.FieldMappings[0].TemplateTag)
	assert.Equal(t, "wf-1", got.FieldMappings[0].WorkflowID)
	assert.NotEmpty(t, got.FieldMappings[0].ID)

	listed, err := p.WorkflowRepository().List(t.Context(), "org-1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	others, err := p.WorkflowRepository().List(t.Context(), "org-2")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, p.WorkflowRepository().Delete(t.Context(), "wf-1"))

	_, err = p.WorkflowRepository().GetByID(t.Context(), "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	mappings, err := p.FieldMappingRepository().ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestFieldMappingRepository_RejectsDuplicates(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.FieldMappingRepository().ReplaceForWorkflow(t.Context(), "wf-1", []*models.WorkflowFieldMapping{
		{TemplateTag: "name", SourceField: "a"},
		{TemplateTag: "name ", SourceField: "b"},
	})
	assert.ErrorIs(t, err, persistence.ErrDuplicateMapping)
}

func TestPersistence_RejectsUnsafeIDs(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.TemplateRepository().GetByID(t.Context(), "../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid characters")
}

func TestOrganizationRepository_ConcurrentIncrements(t *testing.T) {
	p := NewPersistence(t.TempDir())
	orgs := p.OrganizationRepository()

	require.NoError(t, orgs.Save(t.Context(), &models.Organization{ID: "org-1", Name: "Acme", DocumentsLimit: 100}))

	const runs = 20

	var wg sync.WaitGroup
	for range runs {
		wg.Add(1)

		go func() {
			defer wg.Done()
			assert.NoError(t, orgs.IncrementDocumentCount(t.Context(), "org-1"))
		}()
	}

	wg.Wait()

	org, err := orgs.GetByID(t.Context(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, runs, org.DocumentsUsed)

	// Save keeps the counter
	require.NoError(t, orgs.Save(t.Context(), &models.Organization{ID: "org-1", Name: "Acme Inc", DocumentsLimit: 20}))

	ok, err := orgs.CanGenerateDocument(t.Context(), "org-1")
	require.NoError(t, err)
	assert.False(t, ok)

	err = orgs.IncrementDocumentCount(t.Context(), "missing")
	assert.ErrorIs(t, err, persistence.ErrOrganizationNotFound)
}

func TestExecutionRepository_UpdateGuardsTerminal(t *testing.T) {
	p := NewPersistence(t.TempDir())
	executions := p.ExecutionRepository()
	started := time.Now().UTC()

	exec := &models.WorkflowExecution{ID: "ex-1", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning, StartedAt: started}
	require.NoError(t, executions.Create(t.Context(), exec))

	exec.Complete(started.Add(time.Second))
	require.NoError(t, executions.Update(t.Context(), exec))

	exec.Fail(started.Add(2*time.Second), "late failure")
	assert.ErrorIs(t, executions.Update(t.Context(), exec), persistence.ErrExecutionFinalized)

	stored, err := executions.GetByID(t.Context(), "ex-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)

	err = executions.Update(t.Context(), &models.WorkflowExecution{ID: "ex-404"})
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	require.NoError(t, executions.Create(t.Context(), &models.WorkflowExecution{
		ID: "ex-2", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning, StartedAt: started.Add(time.Minute),
	}))

	listed, err := executions.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "ex-2", listed[0].ID)
}

func TestDocumentRepository_Signature(t *testing.T) {
	p := NewPersistence(t.TempDir())
	documents := p.DocumentRepository()

	require.NoError(t, documents.Create(t.Context(), &models.GeneratedDocument{
		ID: "doc-1", WorkflowID: "wf-1", Status: models.DocumentStatusGenerated,
		SourceSnapshot: map[string]any{"name": "Acme"},
	}))

	require.NoError(t, documents.UpdateSignature(t.Context(), "doc-1", models.SignatureUpdate{
		Provider: "clicksign", RequestID: "req-1", Status: models.DocumentStatusSentForSignature, UpdatedAt: time.Now(),
	}))

	found, err := documents.GetBySignatureRequest(t.Context(), "clicksign", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", found.ID)
	assert.Equal(t, models.DocumentStatusSentForSignature, found.Status)
	assert.Equal(t, "Acme", found.SourceSnapshot["name"])

	_, err = documents.GetBySignatureRequest(t.Context(), "clicksign", "req-2")
	assert.ErrorIs(t, err, persistence.ErrDocumentNotFound)

	require.NoError(t, documents.AttachPDF(t.Context(), "doc-1", models.PDFRendition{FileID: "pdf-1", URL: "memory://pdf-1"}))

	withPDF, err := documents.GetByID(t.Context(), "doc-1")
	require.NoError(t, err)
	require.NotNil(t, withPDF.PDFURL)
	assert.Equal(t, "memory://pdf-1", *withPDF.PDFURL)
	assert.Equal(t, models.DocumentStatusSentForSignature, withPDF.Status)

	assert.ErrorIs(t, documents.AttachPDF(t.Context(), "doc-2", models.PDFRendition{}), persistence.ErrDocumentNotFound)
}
