package datasources

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubSpotServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /crm/v3/objects/deals/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		if r.PathValue("id") != "42" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		assert.Equal(t, "dealname,amount", r.URL.Query().Get("properties"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42","properties":{"dealname":"Acme renewal","amount":"1234.5"},"createdAt":"2024-01-02T10:00:00Z"}`))
	})

	mux.HandleFunc("POST /crm/v3/objects/deals/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 5, body["limit"])

		groups := body["filterGroups"].([]any)
		filters := groups[0].(map[string]any)["filters"].([]any)
		assert.Len(t, filters, 2)
		assert.Equal(t, "amount", filters[0].(map[string]any)["propertyName"])

		_, _ = w.Write([]byte(`{"results":[{"id":"42","properties":{"dealname":"Acme renewal"}}]}`))
	})

	mux.HandleFunc("GET /crm/v3/objects/contacts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newConnection(baseURL, token string) *models.Connection {
	return &models.Connection{
		ID:          "conn-1",
		Provider:    ProviderHubSpot,
		Credentials: map[string]string{"access_token": token},
		Config: map[string]any{
			"base_url":   baseURL,
			"properties": map[string]any{"deal": []any{"dealname", "amount"}},
		},
	}
}

func TestHubSpot_FetchObject(t *testing.T) {
	server := newHubSpotServer(t)

	source, err := NewHubSpot(newConnection(server.URL, "token-1"), server.Client())
	require.NoError(t, err)

	data, err := source.FetchObject(t.Context(), "deal", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", data["id"])
	assert.Equal(t, "Acme renewal", data["dealname"])
	assert.Equal(t, "1234.5", data["amount"])
	assert.Equal(t, "2024-01-02T10:00:00Z", data["created_at"])

	_, err = source.FetchObject(t.Context(), "deal", "7")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	bad, err := NewHubSpot(newConnection(server.URL, "other"), server.Client())
	require.NoError(t, err)

	_, err = bad.FetchObject(t.Context(), "deals", "42")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHubSpot_ListAndTest(t *testing.T) {
	server := newHubSpotServer(t)

	source, err := NewHubSpot(newConnection(server.URL, "token-1"), server.Client())
	require.NoError(t, err)

	objects, err := source.ListObjects(t.Context(), "deal", map[string]string{"dealname": "Acme renewal", "amount": "1"}, 5)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "42", objects[0]["id"])

	assert.NoError(t, source.TestConnection(t.Context()))
}

func TestNewHubSpot_RequiresToken(t *testing.T) {
	_, err := NewHubSpot(&models.Connection{ID: "conn-1"}, http.DefaultClient)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestRegistry_CachesPerConnection(t *testing.T) {
	registry := NewRegistry(time.Minute, nil)
	builds := 0

	registry.Register("fake", func(connection *models.Connection, _ *http.Client) (DataSource, error) {
		builds++

		return &HubSpot{token: connection.ID}, nil
	})

	connection := &models.Connection{ID: "conn-1", Provider: "fake", UpdatedAt: time.Now()}

	first, err := registry.For(connection)
	require.NoError(t, err)

	second, err := registry.For(connection)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)

	connection.UpdatedAt = connection.UpdatedAt.Add(time.Second)
	_, err = registry.For(connection)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)

	registry.Forget("conn-1")
	_, err = registry.For(connection)
	require.NoError(t, err)
	assert.Equal(t, 3, builds)

	_, err = registry.For(&models.Connection{ID: "conn-2", Provider: "salesforce"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
