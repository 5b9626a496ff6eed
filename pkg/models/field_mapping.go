package models

import "time"

// WorkflowFieldMapping binds a template tag to a dotted path in the source data.
// The pair (WorkflowID, TemplateTag) is unique.
type WorkflowFieldMapping struct {
	ID              string         `json:"id"                         yaml:"id"`
	WorkflowID      string         `json:"workflow_id"                yaml:"-"`
	TemplateTag     string         `json:"template_tag"               yaml:"template_tag"     validate:"required"`
	SourceField     string         `json:"source_field"               yaml:"source_field"     validate:"required"`
	TransformType   string         `json:"transform_type,omitempty"   yaml:"transform_type"`
	TransformConfig map[string]any `json:"transform_config,omitempty" yaml:"transform_config"`
	DefaultValue    *string        `json:"default_value,omitempty"    yaml:"default_value"`
	CreatedAt       time.Time      `json:"created_at"                 yaml:"-"`
}
