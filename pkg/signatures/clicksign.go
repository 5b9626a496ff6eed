package signatures

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/models"
)

const (
	ProviderClickSign       = "clicksign"
	DefaultClickSignBaseURL = "https://sandbox.clicksign.com"
)

// ClickSign talks to the ClickSign v1 API: upload document, create signers, link them
// to the document and notify each one.
type ClickSign struct {
	baseURL     string
	accessToken string
	client      *http.Client
	now         func() time.Time
}

func NewClickSign(baseURL, accessToken string, client *http.Client) *ClickSign {
	if baseURL == "" {
		baseURL = DefaultClickSignBaseURL
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &ClickSign{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		client:      client,
		now:         time.Now,
	}
}

type clickSignDocument struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

func (c *ClickSign) SendForSignature(ctx context.Context, request Request) (*Receipt, error) {
	if len(request.Signers) == 0 {
		return nil, ErrNoSigners
	}

	var uploaded struct {
		Document clickSignDocument `json:"document"`
	}

	err := c.do(ctx, http.MethodPost, "/api/v1/documents", map[string]any{
		"document": map[string]any{
			"path":           "/" + request.Name + ".pdf",
			"content_base64": "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(request.PDF),
			"auto_close":     true,
			"locale":         "pt-BR",
		},
	}, &uploaded)
	if err != nil {
		return nil, err
	}

	for _, signer := range request.Signers {
		var created struct {
			Signer struct {
				Key string `json:"key"`
			} `json:"signer"`
		}

		err := c.do(ctx, http.MethodPost, "/api/v1/signers", map[string]any{
			"signer": map[string]any{
				"email": signer.Email,
				"name":  signer.Name,
				"auths": []string{"email"},
			},
		}, &created)
		if err != nil {
			return nil, err
		}

		var list struct {
			List struct {
				RequestSignatureKey string `json:"request_signature_key"`
			} `json:"list"`
		}

		err = c.do(ctx, http.MethodPost, "/api/v1/lists", map[string]any{
			"list": map[string]any{
				"document_key": uploaded.Document.Key,
				"signer_key":   created.Signer.Key,
				"sign_as":      "sign",
				"message":      request.Message,
			},
		}, &list)
		if err != nil {
			return nil, err
		}

		err = c.do(ctx, http.MethodPost, "/api/v1/notifications", map[string]any{
			"request_signature_key": list.List.RequestSignatureKey,
			"message":               request.Message,
		}, nil)
		if err != nil {
			return nil, err
		}
	}

	return &Receipt{
		RequestID: uploaded.Document.Key,
		URL:       c.baseURL + "/sign/" + uploaded.Document.Key,
	}, nil
}

func (c *ClickSign) GetStatus(ctx context.Context, requestID string) (models.DocumentStatus, error) {
	var fetched struct {
		Document clickSignDocument `json:"document"`
	}

	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(requestID), nil, &fetched); err != nil {
		return "", err
	}

	return documentStatus(fetched.Document.Status), nil
}

type clickSignWebhook struct {
	Event struct {
		Name string `json:"name"`
	} `json:"event"`
	Document clickSignDocument `json:"document"`
}

func (c *ClickSign) HandleWebhook(_ context.Context, payload []byte) (*models.SignatureUpdate, error) {
	var hook clickSignWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}

	if hook.Document.Key == "" {
		return nil, fmt.Errorf("%w: missing document key", ErrInvalidWebhook)
	}

	var status models.DocumentStatus

	switch hook.Event.Name {
	case "auto_close", "close":
		status = models.DocumentStatusSigned
	case "cancel", "deadline":
		status = models.DocumentStatusSignatureCanceled
	default:
		return nil, nil
	}

	return &models.SignatureUpdate{
		Provider:  ProviderClickSign,
		RequestID: hook.Document.Key,
		Status:    status,
		UpdatedAt: c.now().UTC(),
	}, nil
}

func documentStatus(status string) models.DocumentStatus {
	switch status {
	case "closed":
		return models.DocumentStatusSigned
	case "canceled":
		return models.DocumentStatusSignatureCanceled
	default:
		return models.DocumentStatusSentForSignature
	}
}

func (c *ClickSign) do(ctx context.Context, method, path string, body any, target any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode clicksign request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path + "?access_token=" + url.QueryEscape(c.accessToken)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build clicksign request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("clicksign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("clicksign %s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if target == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode clicksign response: %w", err)
	}

	return nil
}
