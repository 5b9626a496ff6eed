// Package signatures sends generated documents to e-signature providers.
package signatures

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dukex/docflow/pkg/models"
)

var (
	ErrUnknownProvider = errors.New("unknown signature provider")
	ErrNoSigners       = errors.New("signature request has no signers")
	ErrInvalidWebhook  = errors.New("invalid signature webhook payload")
)

// Request is a PDF rendition to be signed.
type Request struct {
	DocumentID string
	Name       string
	PDF        []byte
	Signers    []models.Signer
	Message    string
}

// Receipt identifies the request on the provider side.
type Receipt struct {
	RequestID string
	URL       string
}

// Provider is the capability set every signature integration implements.
type Provider interface {
	SendForSignature(ctx context.Context, request Request) (*Receipt, error)
	GetStatus(ctx context.Context, requestID string) (models.DocumentStatus, error)
	// HandleWebhook decodes a provider callback. A nil update means the event does not
	// change the document status.
	HandleWebhook(ctx context.Context, payload []byte) (*models.SignatureUpdate, error)
}

// Registry selects a Provider by type name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[name] = provider
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	return provider, nil
}
