// Package datasources fetches source objects from external systems such as a CRM.
package datasources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/patrickmn/go-cache"
)

var (
	ErrUnknownProvider    = errors.New("unknown data source provider")
	ErrMissingCredentials = errors.New("data source credentials are missing")
	ErrObjectNotFound     = errors.New("source object not found")
	ErrUnauthorized       = errors.New("data source rejected the credentials")
)

// DataSource reads objects from one connected system.
type DataSource interface {
	FetchObject(ctx context.Context, objectType, objectID string) (map[string]any, error)
	// ListObjects returns up to limit objects whose properties equal every filter value.
	ListObjects(ctx context.Context, objectType string, filters map[string]string, limit int) ([]map[string]any, error)
	TestConnection(ctx context.Context) error
}

// Factory builds a DataSource for a stored connection.
type Factory func(connection *models.Connection, client *http.Client) (DataSource, error)

type cachedSource struct {
	updatedAt time.Time
	source    DataSource
}

// Registry selects a DataSource by connection provider and keeps built clients for a TTL.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	clients   *cache.Cache
	http      *http.Client
}

func NewRegistry(ttl time.Duration, client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Registry{
		factories: make(map[string]Factory),
		clients:   cache.New(ttl, 2*ttl),
		http:      client,
	}
}

// NewDefaultRegistry registers every built-in provider.
func NewDefaultRegistry(ttl time.Duration, client *http.Client) *Registry {
	registry := NewRegistry(ttl, client)
	registry.Register(ProviderHubSpot, NewHubSpot)

	return registry
}

func (r *Registry) Register(provider string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[provider] = factory
}

// For returns the DataSource for a connection. A connection updated since the client
// was cached gets a fresh client.
func (r *Registry) For(connection *models.Connection) (DataSource, error) {
	if cached, ok := r.clients.Get(connection.ID); ok {
		entry := cached.(cachedSource)
		if entry.updatedAt.Equal(connection.UpdatedAt) {
			return entry.source, nil
		}
	}

	r.mu.RLock()
	factory, ok := r.factories[connection.Provider]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, connection.Provider)
	}

	source, err := factory(connection, r.http)
	if err != nil {
		return nil, err
	}

	r.clients.SetDefault(connection.ID, cachedSource{updatedAt: connection.UpdatedAt, source: source})

	return source, nil
}

// Forget drops the cached client of a connection.
func (r *Registry) Forget(connectionID string) {
	r.clients.Delete(connectionID)
}
