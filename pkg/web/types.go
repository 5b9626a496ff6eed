// Package web provides HTTP request and response types for the document generation API.
package web

import (
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/tags"
)

// TriggerExecutionRequest starts a run. Either SourceObjectID or SourceData is required.
type TriggerExecutionRequest struct {
	SourceObjectID string         `json:"source_object_id" validate:"required_without=SourceData"`
	SourceData     map[string]any `json:"source_data"      validate:"required_without=SourceObjectID"`
	TriggeredBy    string         `json:"triggered_by"`
	Async          bool           `json:"async"`
}

// FieldMappingRequest is one entry of a mapping set.
type FieldMappingRequest struct {
	TemplateTag     string         `json:"template_tag"     validate:"required,max=255"`
	SourceField     string         `json:"source_field"     validate:"required,max=500"`
	TransformType   string         `json:"transform_type"`
	TransformConfig map[string]any `json:"transform_config"`
	DefaultValue    *string        `json:"default_value"`
}

// ReplaceFieldMappingsRequest replaces the whole mapping set of a workflow.
type ReplaceFieldMappingsRequest struct {
	Mappings []FieldMappingRequest `json:"mappings" validate:"dive"`
}

// RejectApprovalRequest carries the optional reason of a rejection.
type RejectApprovalRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// ExecutionResponse is the state of a run after a trigger or an approval decision.
type ExecutionResponse struct {
	Execution *models.WorkflowExecution `json:"execution"`
	Document  *models.GeneratedDocument `json:"document,omitempty"`
	Approval  *ApprovalResponse         `json:"approval,omitempty"`
}

// ApprovalResponse is what an approver sees. The token and the resume context stay private.
type ApprovalResponse struct {
	ID            string                `json:"id"`
	WorkflowID    string                `json:"workflow_id"`
	ExecutionID   string                `json:"execution_id"`
	Status        models.ApprovalStatus `json:"status"`
	ApproverEmail string                `json:"approver_email"`
	Message       string                `json:"message,omitempty"`
	DocumentURL   string                `json:"document_url,omitempty"`
	PDFURL        string                `json:"pdf_url,omitempty"`
	ExpiresAt     time.Time             `json:"expires_at"`
	CreatedAt     time.Time             `json:"created_at"`
	DecidedAt     *time.Time            `json:"decided_at,omitempty"`
	Comment       string                `json:"comment,omitempty"`
}

// DecisionResponse is returned by the approve and reject endpoints.
type DecisionResponse struct {
	Approval    *ApprovalResponse  `json:"approval"`
	Execution   *ExecutionResponse `json:"execution,omitempty"`
	ResumeError string             `json:"resume_error,omitempty"`
}

// TransformApproval builds the approver view of an approval.
func TransformApproval(approval *models.WorkflowApproval) *ApprovalResponse {
	if approval == nil {
		return nil
	}

	response := &ApprovalResponse{
		ID:            approval.ID,
		WorkflowID:    approval.WorkflowID,
		ExecutionID:   approval.ExecutionID,
		Status:        approval.Status,
		ApproverEmail: approval.ApproverEmail,
		DocumentURL:   approval.DocumentURL,
		PDFURL:        approval.PDFURL,
		ExpiresAt:     approval.ExpiresAt,
		CreatedAt:     approval.CreatedAt,
		Comment:       approval.Comment,
	}

	if approval.MessageTemplate != "" {
		response.Message = tags.Render(approval.MessageTemplate, approval.Context.SourceData, nil)
	}

	switch {
	case approval.ApprovedAt != nil:
		response.DecidedAt = approval.ApprovedAt
	case approval.RejectedAt != nil:
		response.DecidedAt = approval.RejectedAt
	case approval.ExpiredAt != nil:
		response.DecidedAt = approval.ExpiredAt
	}

	return response
}

// TransformResult builds the response of a run.
func TransformResult(result *services.Result) *ExecutionResponse {
	if result == nil || result.Execution == nil {
		return nil
	}

	return &ExecutionResponse{
		Execution: result.Execution,
		Document:  result.Document,
		Approval:  TransformApproval(result.Approval),
	}
}

// TransformMappings converts the request entries to models.
func TransformMappings(entries []FieldMappingRequest) []*models.WorkflowFieldMapping {
	mappings := make([]*models.WorkflowFieldMapping, 0, len(entries))

	for _, entry := range entries {
		mappings = append(mappings, &models.WorkflowFieldMapping{
			TemplateTag:     entry.TemplateTag,
			SourceField:     entry.SourceField,
			TransformType:   entry.TransformType,
			TransformConfig: entry.TransformConfig,
			DefaultValue:    entry.DefaultValue,
		})
	}

	return mappings
}
