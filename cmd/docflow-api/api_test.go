package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/models"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestEngine(t *testing.T) *cmd.Engine {
	t.Helper()

	engine, err := cmd.NewEngine(t.Context(), slog.New(slog.DiscardHandler), cmd.EngineConfig{
		ServiceName:    "docflow-api-test",
		DatabaseURL:    "file://" + t.TempDir(),
		EventBus:       "gochannel",
		BackendTimeout: time.Second,
		PublicURL:      "https://docflow.test",
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	return engine
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	return NewAPI(slog.New(slog.DiscardHandler), setupTestEngine(t)).App()
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Docflow API", body)
}

func TestAPI_Probes(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			status, body := get(t, app, path)

			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, "OK", body)
		})
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/health")
	require.Equal(t, http.StatusOK, status)

	var response map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestAPI_UnknownExecution(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/executions/missing")

	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "not_found")
}

func TestApplySeed(t *testing.T) {
	engine := setupTestEngine(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(`
organizations:
  - id: org-1
    name: Acme
templates:
  - id: tpl-1
    organization_id: org-1
    name: Offer
    backend_file_id: tpl-file
workflows:
  - id: wf-1
    organization_id: org-1
    name: Offers
    status: active
    source_object_type: deal
    template_id: tpl-1
    field_mappings:
      - template_tag: client_name
        source_field: name
`)), 0o600))

	require.NoError(t, applySeed(t.Context(), engine, path))

	workflow, err := engine.Workflow.FetchByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Len(t, workflow.FieldMappings, 1)

	assert.Error(t, applySeed(t.Context(), engine, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestAPI_TriggerAgainstSeededWorkflow(t *testing.T) {
	engine := setupTestEngine(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
organizations:
  - id: org-1
    name: Acme
templates:
  - id: tpl-1
    organization_id: org-1
    name: Offer
    backend_file_id: tpl-file
workflows:
  - id: wf-1
    organization_id: org-1
    name: Offers
    source_object_type: deal
    template_id: tpl-1
`), 0o600))
	require.NoError(t, applySeed(t.Context(), engine, path))

	app := NewAPI(slog.New(slog.DiscardHandler), engine).App()

	req := httptest.NewRequest(http.MethodPost, "/workflows/wf-1/executions", strings.NewReader(`{"source_data":{"name":"Acme"}}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	// The in-memory editor starts empty, so the template file cannot be copied.
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	executions, err := engine.Workflow.ListExecutions(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusFailed, executions[0].Status)
}
