package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/signatures"
)

// SignatureWebhooks applies provider callbacks to generated documents.
type SignatureWebhooks struct {
	persistence persistence.Persistence
	providers   *signatures.Registry
	logger      *slog.Logger
}

func NewSignatureWebhooks(p persistence.Persistence, providers *signatures.Registry, logger *slog.Logger) *SignatureWebhooks {
	return &SignatureWebhooks{
		persistence: p,
		providers:   providers,
		logger:      logger.With("module", "signature_webhooks"),
	}
}

// Handle decodes payload with the named provider and updates the matching document.
// Events that do not change the signature status return a nil document.
func (s *SignatureWebhooks) Handle(ctx context.Context, providerName string, payload []byte) (*models.GeneratedDocument, error) {
	const op = "SignatureWebhook"

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, notFoundError(op, "", err)
	}

	update, err := provider.HandleWebhook(ctx, payload)
	if err != nil {
		if errors.Is(err, signatures.ErrInvalidWebhook) {
			return nil, NewValidationError(op, "invalid_webhook", err.Error(), err)
		}

		return nil, newError(op, ErrDocumentBackend, CodeDocumentBackend, "", err)
	}

	if update == nil {
		s.logger.DebugContext(ctx, "ignoring signature event", "provider", providerName)

		return nil, nil
	}

	documents := s.persistence.DocumentRepository()

	document, err := documents.GetBySignatureRequest(ctx, update.Provider, update.RequestID)
	if err != nil {
		return nil, classify(op, err, ErrNotFound)
	}

	if err := documents.UpdateSignature(ctx, document.ID, *update); err != nil {
		return nil, classify(op, err, ErrNotFound)
	}

	s.logger.InfoContext(ctx, "document signature updated",
		"document_id", document.ID, "provider", update.Provider, "status", update.Status)

	document.Status = update.Status
	document.SignatureUpdatedAt = &update.UpdatedAt

	return document, nil
}
