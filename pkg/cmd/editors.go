package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/documents/google"
	"github.com/dukex/docflow/pkg/documents/memory"
	"github.com/dukex/docflow/pkg/models"
)

// NewEditors registers one editor per file kind. Without a credentials file the
// in-memory editor serves both kinds, which is only useful for local runs.
func NewEditors(ctx context.Context, logger *slog.Logger, credentialsPath string, timeout time.Duration) (*documents.Registry, error) {
	registry := documents.NewRegistry()

	if credentialsPath == "" {
		logger.WarnContext(ctx, "no google credentials configured, using in-memory document editor")

		editor := memory.NewEditor("")
		registry.Register(models.FileKindDocument, editor)
		registry.Register(models.FileKindPresentation, editor)

		return registry, nil
	}

	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read google credentials: %w", err)
	}

	services, err := google.NewServices(ctx, credentials, timeout)
	if err != nil {
		return nil, err
	}

	registry.Register(models.FileKindDocument, google.NewDocsEditor(services))
	registry.Register(models.FileKindPresentation, google.NewSlidesEditor(services))

	return registry, nil
}
