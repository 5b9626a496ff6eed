package services

import (
	"log/slog"
	"testing"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/signatures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureWebhooks_Handle(t *testing.T) {
	f := newFixture(t)

	result, err := f.generator.Generate(t.Context(), f.request())
	require.NoError(t, err)

	documentID := result.Document.ID
	require.NoError(t, f.p.DocumentRepository().UpdateSignature(t.Context(), documentID, models.SignatureUpdate{
		Provider:  signatures.ProviderClickSign,
		RequestID: "k1",
		Status:    models.DocumentStatusSentForSignature,
		UpdatedAt: testStart,
	}))

	providers := signatures.NewRegistry()
	providers.Register(signatures.ProviderClickSign, signatures.NewClickSign("", "token", nil))

	webhooks := NewSignatureWebhooks(f.p, providers, slog.New(slog.DiscardHandler))

	document, err := webhooks.Handle(t.Context(), "clicksign", []byte(`{"event":{"name":"sign"},"document":{"key":"k1"}}`))
	require.NoError(t, err)
	assert.Nil(t, document)

	document, err = webhooks.Handle(t.Context(), "clicksign", []byte(`{"event":{"name":"auto_close"},"document":{"key":"k1"}}`))
	require.NoError(t, err)
	require.NotNil(t, document)
	assert.Equal(t, documentID, document.ID)
	assert.Equal(t, models.DocumentStatusSigned, document.Status)

	stored, err := f.p.DocumentRepository().GetByID(t.Context(), documentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusSigned, stored.Status)
	assert.Equal(t, "k1", stored.SignatureRequestID)

	_, err = webhooks.Handle(t.Context(), "docusign", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = webhooks.Handle(t.Context(), "clicksign", []byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, signatures.ErrInvalidWebhook)

	_, err = webhooks.Handle(t.Context(), "clicksign", []byte(`{"event":{"name":"close"},"document":{"key":"unknown"}}`))
	assert.ErrorIs(t, err, ErrNotFound)
}
