// Package models defines the core domain models for document generation workflows
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, runnable manually
	WorkflowStatusActive   WorkflowStatus = "active"   // Template resolved, triggers enabled
	WorkflowStatusPaused   WorkflowStatus = "paused"   // Triggers disabled
	WorkflowStatusArchived WorkflowStatus = "archived" // Historical, not executable
)

// DefaultNameTemplate is used when a workflow does not define an output name template.
const DefaultNameTemplate = "{{object_type}} - {{timestamp}}"

// Workflow binds a source object type to a document template and its output actions.
type Workflow struct {
	ID                 string                  `json:"id"                             yaml:"id"`
	OrganizationID     string                  `json:"organization_id"                yaml:"organization_id"     validate:"required"`
	Name               string                  `json:"name"                           yaml:"name"                validate:"required,min=3"`
	Description        string                  `json:"description,omitempty"          yaml:"description"`
	Status             WorkflowStatus          `json:"status"                         yaml:"status"              validate:"required,oneof=draft active paused archived"`
	SourceConnectionID string                  `json:"source_connection_id,omitempty" yaml:"source_connection_id"`
	SourceObjectType   string                  `json:"source_object_type"             yaml:"source_object_type"  validate:"required"`
	SourceConfig       map[string]any          `json:"source_config,omitempty"        yaml:"source_config"`
	TemplateID         string                  `json:"template_id,omitempty"          yaml:"template_id"`
	OutputFolderID     string                  `json:"output_folder_id,omitempty"     yaml:"output_folder_id"`
	OutputNameTemplate string                  `json:"output_name_template,omitempty" yaml:"output_name_template"`
	CreatePDF          bool                    `json:"create_pdf"                     yaml:"create_pdf"`
	TriggerType        string                  `json:"trigger_type,omitempty"         yaml:"trigger_type"`
	TriggerConfig      map[string]any          `json:"trigger_config,omitempty"       yaml:"trigger_config"`
	PostActions        []PostAction            `json:"post_actions,omitempty"         yaml:"post_actions"`
	FieldMappings      []*WorkflowFieldMapping `json:"field_mappings,omitempty"       yaml:"field_mappings"`
	CreatedAt          time.Time               `json:"created_at"                     yaml:"-"`
	UpdatedAt          time.Time               `json:"updated_at"                     yaml:"-"`
}

// NameTemplate returns the output name template, falling back to the default.
func (w *Workflow) NameTemplate() string {
	if w.OutputNameTemplate == "" {
		return DefaultNameTemplate
	}

	return w.OutputNameTemplate
}

// Runnable reports whether executions may be started for the workflow. Paused and
// archived workflows refuse new runs; runs already waiting on an approval still resume.
func (w *Workflow) Runnable() bool {
	return w.Status == WorkflowStatusDraft || w.Status == WorkflowStatusActive
}

// PostActionType identifies what a post-action does after the document is generated.
type PostActionType string

const (
	PostActionApproval  PostActionType = "approval"
	PostActionSignature PostActionType = "signature"
)

// PostAction is one ordered step executed after a document has been generated.
type PostAction struct {
	ID     string         `json:"id"               yaml:"id"     validate:"required"`
	Type   PostActionType `json:"type"             yaml:"type"   validate:"required,oneof=approval signature"`
	Config map[string]any `json:"config,omitempty" yaml:"config"`
}

// DefaultApprovalTimeoutHours applies when an approval action has no timeout configured.
const DefaultApprovalTimeoutHours = 48

// ApprovalConfig is the decoded configuration of an approval post-action.
type ApprovalConfig struct {
	ApproverEmail        string `json:"approver_email"`
	TimeoutHours         int    `json:"timeout_hours"`
	MessageTemplate      string `json:"message_template"`
	AutoApproveOnTimeout bool   `json:"auto_approve_on_timeout"`
}

// Signer is a signature request recipient.
type Signer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SignatureConfig is the decoded configuration of a signature post-action.
type SignatureConfig struct {
	Provider string   `json:"provider"`
	Signers  []Signer `json:"signers"`
	Message  string   `json:"message"`
}

// ApprovalConfig decodes the action configuration as an approval step.
func (a PostAction) ApprovalConfig() (ApprovalConfig, error) {
	var cfg ApprovalConfig
	if err := decodeConfig(a.Config, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid approval config for action %s: %w", a.ID, err)
	}

	if cfg.TimeoutHours <= 0 {
		cfg.TimeoutHours = DefaultApprovalTimeoutHours
	}

	return cfg, nil
}

// SignatureConfig decodes the action configuration as a signature step.
func (a PostAction) SignatureConfig() (SignatureConfig, error) {
	var cfg SignatureConfig
	if err := decodeConfig(a.Config, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid signature config for action %s: %w", a.ID, err)
	}

	return cfg, nil
}

func decodeConfig(config map[string]any, target any) error {
	if len(config) == 0 {
		return nil
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, target)
}
