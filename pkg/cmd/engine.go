package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/docflow/pkg/datasources"
	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/signatures"
)

const dataSourceTTL = 10 * time.Minute

// EngineConfig is what both binaries need to run documents.
type EngineConfig struct {
	ServiceName       string
	DatabaseURL       string
	EventBus          string
	KafkaBrokers      string
	GoogleCredentials string
	BackendTimeout    time.Duration
	PublicURL         string
	StrictPDF         bool
	ClickSignURL      string
	ClickSignToken    string
	OTel              bool
}

// Engine holds the wired services of a process.
type Engine struct {
	Persistence       persistence.Persistence
	EventBus          eventbus.EventBus
	Generator         *services.Generator
	Workflow          *services.Workflow
	Approvals         *services.Approvals
	Dispatcher        *services.Dispatcher
	SignatureWebhooks *services.SignatureWebhooks

	shutdownTracer func(context.Context) error
}

// NewEngine opens persistence, the event bus and the document backends, then wires
// the services on top of them.
func NewEngine(ctx context.Context, logger *slog.Logger, cfg EngineConfig) (*Engine, error) {
	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, cfg.ServiceName, cfg.OTel)
	if err != nil {
		return nil, err
	}

	engine := &Engine{shutdownTracer: shutdownTracer}

	engine.Persistence, err = NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Join(err, engine.Close(ctx))
	}

	engine.EventBus, err = NewEventBus(cfg.EventBus, cfg.KafkaBrokers, cfg.ServiceName, logger)
	if err != nil {
		return nil, errors.Join(err, engine.Close(ctx))
	}

	editors, err := NewEditors(ctx, logger, cfg.GoogleCredentials, cfg.BackendTimeout)
	if err != nil {
		return nil, errors.Join(err, engine.Close(ctx))
	}

	client := &http.Client{Timeout: cfg.BackendTimeout}

	providers := signatures.NewRegistry()
	if cfg.ClickSignToken != "" {
		providers.Register(signatures.ProviderClickSign, signatures.NewClickSign(cfg.ClickSignURL, cfg.ClickSignToken, client))
	}

	engine.Generator = services.NewGenerator(engine.Persistence, editors, logger,
		services.WithPublisher(engine.EventBus),
		services.WithSignatures(providers),
		services.WithTracer(tracer),
		services.WithStrictPDF(cfg.StrictPDF),
		services.WithPublicURL(cfg.PublicURL),
	)
	engine.Workflow = services.NewWorkflow(engine.Persistence, logger)
	engine.Approvals = services.NewApprovals(engine.Persistence, engine.Generator, logger)
	engine.Dispatcher = services.NewDispatcher(engine.Generator, datasources.NewDefaultRegistry(dataSourceTTL, client), logger)
	engine.SignatureWebhooks = services.NewSignatureWebhooks(engine.Persistence, providers, logger)

	return engine, nil
}

// Close releases whatever NewEngine opened.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error

	if e.EventBus != nil {
		errs = append(errs, e.EventBus.Close())
	}

	if e.Persistence != nil {
		errs = append(errs, e.Persistence.Close(ctx))
	}

	if e.shutdownTracer != nil {
		errs = append(errs, e.shutdownTracer(ctx))
	}

	return errors.Join(errs...)
}
