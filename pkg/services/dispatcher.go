package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/datasources"
	"github.com/dukex/docflow/pkg/models"
)

// TriggerInput is what a trigger source hands over to start a run. When SourceData is
// empty the object is fetched from the workflow's source connection.
type TriggerInput struct {
	WorkflowID     string         `json:"workflow_id"            validate:"required"`
	SourceObjectID string         `json:"source_object_id"`
	SourceData     map[string]any `json:"source_data,omitempty"`
	TriggeredBy    string         `json:"triggered_by,omitempty"`
	TriggerType    string         `json:"trigger_type,omitempty"`
}

// Dispatcher is the single entry point of trigger sources.
type Dispatcher struct {
	generator *Generator
	sources   *datasources.Registry
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. sources may be nil when every trigger supplies its data.
func NewDispatcher(generator *Generator, sources *datasources.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		generator: generator,
		sources:   sources,
		logger:    logger.With("module", "dispatcher"),
	}
}

// Dispatch resolves the source data when needed and runs the workflow.
func (d *Dispatcher) Dispatch(ctx context.Context, input TriggerInput) (*Result, error) {
	const op = "Dispatch"

	if input.WorkflowID == "" {
		return nil, NewValidationError(op, "workflow_id_required", "workflow id is required", nil)
	}

	data := input.SourceData
	origin := "supplied"

	if len(data) == 0 {
		if input.SourceObjectID == "" {
			return nil, NewValidationError(op, "source_required", "either source_data or source_object_id is required", nil)
		}

		fetched, err := d.fetch(ctx, input.WorkflowID, input.SourceObjectID)
		if err != nil {
			d.logger.WarnContext(ctx, "failed to fetch source object",
				"workflow_id", input.WorkflowID, "source_object_id", input.SourceObjectID, "error", err)

			return nil, err
		}

		data = fetched
		origin = "fetched"
	}

	return d.generator.Generate(ctx, Request{
		WorkflowID:     input.WorkflowID,
		SourceObjectID: input.SourceObjectID,
		SourceData:     data,
		TriggeredBy:    input.TriggeredBy,
		TriggerType:    input.TriggerType,
		TriggerData:    map[string]any{"source_data": origin},
	})
}

func (d *Dispatcher) fetch(ctx context.Context, workflowID, objectID string) (map[string]any, error) {
	const op = "FetchSource"

	p := d.generator.persistence

	workflow, err := p.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, classify(op, err, ErrNotFound)
	}

	if workflow.SourceConnectionID == "" {
		return nil, configurationError(op, "workflow has no source connection to fetch from", nil)
	}

	if d.sources == nil {
		return nil, configurationError(op, "no data sources configured", nil)
	}

	connection, err := p.ConnectionRepository().GetByID(ctx, workflow.SourceConnectionID)
	if err != nil {
		return nil, classify(op, err, ErrConfiguration)
	}

	source, err := d.sources.For(connection)
	if err != nil {
		return nil, configurationError(op, "", err)
	}

	data, err := source.FetchObject(ctx, workflow.SourceObjectType, objectID)
	if err != nil {
		return nil, sourceError(op, workflow, objectID, err)
	}

	return data, nil
}

func sourceError(op string, workflow *models.Workflow, objectID string, err error) error {
	switch {
	case errors.Is(err, datasources.ErrObjectNotFound):
		return notFoundError(op, fmt.Sprintf("%s %s not found in source", workflow.SourceObjectType, objectID), err)
	case errors.Is(err, datasources.ErrUnauthorized), errors.Is(err, datasources.ErrMissingCredentials):
		return configurationError(op, "source connection credentials were rejected", err)
	default:
		return newError(op, ErrDataSource, CodeDataSource, "", err)
	}
}
