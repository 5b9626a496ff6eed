package services

import (
	"fmt"
	"strings"

	"github.com/dukex/docflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ApprovalActionSchema describes the config of an approval post-action.
func ApprovalActionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"approver_email": map[string]any{
				"type":   "string",
				"format": "email",
			},
			"timeout_hours": map[string]any{
				"type":    "integer",
				"minimum": 1,
			},
			"message_template": map[string]any{
				"type": "string",
			},
			"auto_approve_on_timeout": map[string]any{
				"type": "boolean",
			},
		},
		"required": []string{"approver_email"},
	}
}

// SignatureActionSchema describes the config of a signature post-action.
func SignatureActionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"provider": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"signers": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"email": map[string]any{"type": "string", "format": "email"},
						"name":  map[string]any{"type": "string"},
					},
					"required": []string{"email"},
				},
			},
			"message": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"provider", "signers"},
	}
}

func postActionSchema(actionType models.PostActionType) (map[string]any, bool) {
	switch actionType {
	case models.PostActionApproval:
		return ApprovalActionSchema(), true
	case models.PostActionSignature:
		return SignatureActionSchema(), true
	default:
		return nil, false
	}
}

// validatePostAction checks an action config against the schema of its type.
func validatePostAction(action models.PostAction) error {
	schema, ok := postActionSchema(action.Type)
	if !ok {
		return fmt.Errorf("post action %s has unknown type %q", action.ID, action.Type)
	}

	config := action.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("post action %s: %w", action.ID, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			problems = append(problems, resultErr.String())
		}

		return fmt.Errorf("post action %s config is invalid: %s", action.ID, strings.Join(problems, "; "))
	}

	return nil
}
