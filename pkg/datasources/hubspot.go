package datasources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/dukex/docflow/pkg/models"
)

const (
	ProviderHubSpot       = "hubspot"
	DefaultHubSpotBaseURL = "https://api.hubapi.com"

	defaultListLimit = 100
)

// HubSpot reads CRM objects through the v3 objects API.
type HubSpot struct {
	baseURL    string
	token      string
	properties map[string][]string
	client     *http.Client
}

type hubSpotObject struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	CreatedAt  string         `json:"createdAt"`
	UpdatedAt  string         `json:"updatedAt"`
	Archived   bool           `json:"archived"`
}

type hubSpotPage struct {
	Results []hubSpotObject `json:"results"`
}

// NewHubSpot builds a client from the connection's access_token credential. The
// connection config may set base_url and a properties list per object type.
func NewHubSpot(connection *models.Connection, client *http.Client) (DataSource, error) {
	token := connection.Credentials["access_token"]
	if token == "" {
		return nil, fmt.Errorf("%w: hubspot connection %s has no access_token", ErrMissingCredentials, connection.ID)
	}

	baseURL := DefaultHubSpotBaseURL
	if configured, ok := connection.Config["base_url"].(string); ok && configured != "" {
		baseURL = strings.TrimSuffix(configured, "/")
	}

	return &HubSpot{
		baseURL:    baseURL,
		token:      token,
		properties: parseProperties(connection.Config["properties"]),
		client:     client,
	}, nil
}

func parseProperties(raw any) map[string][]string {
	properties := make(map[string][]string)

	byType, ok := raw.(map[string]any)
	if !ok {
		return properties
	}

	for objectType, list := range byType {
		items, ok := list.([]any)
		if !ok {
			continue
		}

		for _, item := range items {
			if name, ok := item.(string); ok {
				properties[objectPath(objectType)] = append(properties[objectPath(objectType)], name)
			}
		}
	}

	return properties
}

// objectPath maps singular object names to the plural path segment.
func objectPath(objectType string) string {
	switch objectType {
	case "contact":
		return "contacts"
	case "company":
		return "companies"
	case "deal":
		return "deals"
	case "ticket":
		return "tickets"
	case "quote":
		return "quotes"
	default:
		return objectType
	}
}

func (h *HubSpot) FetchObject(ctx context.Context, objectType, objectID string) (map[string]any, error) {
	path := objectPath(objectType)
	query := url.Values{}

	if props := h.properties[path]; len(props) > 0 {
		query.Set("properties", strings.Join(props, ","))
	}

	endpoint := fmt.Sprintf("%s/crm/v3/objects/%s/%s", h.baseURL, url.PathEscape(path), url.PathEscape(objectID))
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var object hubSpotObject
	if err := h.do(ctx, http.MethodGet, endpoint, nil, &object); err != nil {
		return nil, err
	}

	return flatten(object), nil
}

func (h *HubSpot) ListObjects(ctx context.Context, objectType string, filters map[string]string, limit int) ([]map[string]any, error) {
	path := objectPath(objectType)
	if limit <= 0 {
		limit = defaultListLimit
	}

	var page hubSpotPage

	if len(filters) == 0 {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(limit))

		if props := h.properties[path]; len(props) > 0 {
			query.Set("properties", strings.Join(props, ","))
		}

		endpoint := fmt.Sprintf("%s/crm/v3/objects/%s?%s", h.baseURL, url.PathEscape(path), query.Encode())
		if err := h.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}
	} else {
		endpoint := fmt.Sprintf("%s/crm/v3/objects/%s/search", h.baseURL, url.PathEscape(path))
		if err := h.do(ctx, http.MethodPost, endpoint, searchBody(filters, h.properties[path], limit), &page); err != nil {
			return nil, err
		}
	}

	objects := make([]map[string]any, 0, len(page.Results))
	for _, object := range page.Results {
		objects = append(objects, flatten(object))
	}

	return objects, nil
}

func searchBody(filters map[string]string, properties []string, limit int) map[string]any {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}

	sort.Strings(names)

	clauses := make([]map[string]any, 0, len(names))
	for _, name := range names {
		clauses = append(clauses, map[string]any{
			"propertyName": name,
			"operator":     "EQ",
			"value":        filters[name],
		})
	}

	body := map[string]any{
		"filterGroups": []map[string]any{{"filters": clauses}},
		"limit":        limit,
	}

	if len(properties) > 0 {
		body["properties"] = properties
	}

	return body
}

func (h *HubSpot) TestConnection(ctx context.Context) error {
	endpoint := h.baseURL + "/crm/v3/objects/contacts?limit=1"

	return h.do(ctx, http.MethodGet, endpoint, nil, &hubSpotPage{})
}

func (h *HubSpot) do(ctx context.Context, method, endpoint string, body any, target any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode hubspot request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build hubspot request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("hubspot request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrObjectNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("hubspot returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode hubspot response: %w", err)
	}

	return nil
}

// flatten lifts properties to the top level next to id and the timestamps.
func flatten(object hubSpotObject) map[string]any {
	data := make(map[string]any, len(object.Properties)+3)
	for key, value := range object.Properties {
		data[key] = value
	}

	data["id"] = object.ID

	if object.CreatedAt != "" {
		data["created_at"] = object.CreatedAt
	}

	if object.UpdatedAt != "" {
		data["updated_at"] = object.UpdatedAt
	}

	return data
}
