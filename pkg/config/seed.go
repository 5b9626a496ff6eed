// Package config loads the seed file that provisions organizations, templates,
// connections and workflows at startup.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/services"
	"gopkg.in/yaml.v3"
)

// Seed is the content of a seed file. Workflows carry their field mappings inline.
type Seed struct {
	Organizations []*models.Organization `yaml:"organizations"`
	Templates     []*models.Template     `yaml:"templates"`
	Connections   []*models.Connection   `yaml:"connections"`
	Workflows     []*models.Workflow     `yaml:"workflows"`
}

// Summary counts the records written by Apply.
type Summary struct {
	Organizations int
	Templates     int
	Connections   int
	Workflows     int
	FieldMappings int
}

// LoadSeed reads a seed file. ${VAR} references are expanded from the environment
// so credentials stay out of the file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	seed, err := ParseSeed([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}

	return seed, nil
}

// ParseSeed decodes and checks seed content. Unknown keys are rejected.
func ParseSeed(data []byte) (*Seed, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var seed Seed
	if err := decoder.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML seed: %w", err)
	}

	if err := seed.Validate(); err != nil {
		return nil, err
	}

	return &seed, nil
}

// Validate checks ids are present and unique per section.
func (s *Seed) Validate() error {
	checks := []struct {
		section string
		ids     []string
	}{
		{"organizations", ids(s.Organizations, func(o *models.Organization) string { return o.ID })},
		{"templates", ids(s.Templates, func(t *models.Template) string { return t.ID })},
		{"connections", ids(s.Connections, func(c *models.Connection) string { return c.ID })},
		{"workflows", ids(s.Workflows, func(w *models.Workflow) string { return w.ID })},
	}

	for _, check := range checks {
		seen := make(map[string]bool, len(check.ids))

		for i, id := range check.ids {
			if id == "" {
				return fmt.Errorf("%s[%d]: id is required", check.section, i)
			}

			if seen[id] {
				return fmt.Errorf("%s: duplicate id %q", check.section, id)
			}

			seen[id] = true
		}
	}

	return nil
}

func ids[T any](items []*T, id func(*T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			out = append(out, "")

			continue
		}

		out = append(out, id(item))
	}

	return out
}

// Apply upserts the seed. Workflows go through the workflow service so they are
// validated like API writes; active workflows are re-activated to check their template
// and post-action configs.
func (s *Seed) Apply(ctx context.Context, p persistence.Persistence, workflows *services.Workflow) (Summary, error) {
	var summary Summary

	for _, organization := range s.Organizations {
		if err := p.OrganizationRepository().Save(ctx, organization); err != nil {
			return summary, fmt.Errorf("organization %s: %w", organization.ID, err)
		}

		summary.Organizations++
	}

	for _, template := range s.Templates {
		if template.FileKind == "" {
			template.FileKind = models.FileKindDocument
		}

		if err := p.TemplateRepository().Save(ctx, template); err != nil {
			return summary, fmt.Errorf("template %s: %w", template.ID, err)
		}

		summary.Templates++
	}

	for _, connection := range s.Connections {
		if err := p.ConnectionRepository().Save(ctx, connection); err != nil {
			return summary, fmt.Errorf("connection %s: %w", connection.ID, err)
		}

		summary.Connections++
	}

	for _, workflow := range s.Workflows {
		mappings := workflow.FieldMappings
		activate := workflow.Status == models.WorkflowStatusActive

		if activate {
			workflow.Status = models.WorkflowStatusDraft
		}

		if _, err := workflows.Save(ctx, workflow); err != nil {
			return summary, fmt.Errorf("workflow %s: %w", workflow.ID, err)
		}

		if mappings != nil {
			stored, err := workflows.ReplaceFieldMappings(ctx, workflow.ID, mappings)
			if err != nil {
				return summary, fmt.Errorf("workflow %s mappings: %w", workflow.ID, err)
			}

			summary.FieldMappings += len(stored)
		}

		if activate {
			if _, err := workflows.Activate(ctx, workflow.ID); err != nil {
				return summary, fmt.Errorf("workflow %s: %w", workflow.ID, err)
			}
		}

		summary.Workflows++
	}

	return summary, nil
}
