package review

import "github.com/kokou-stm/kalanso/internal/llm"

// DraftSchema is the shape of a coach note returned by the model.
var DraftSchema = &llm.Schema{
	Name:        "review-draft",
	Description: "Advisory review note for a submission awaiting a human coach",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Two or three sentences the coach can read before opening the submission",
			},
			"suggestedPoints": map[string]any{
				"type":        "number",
				"minimum":     0,
				"description": "Points the coach might award, never more than the question's maximum",
			},
			"rubric": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"criterion": map[string]any{"type": "string"},
						"met":       map[string]any{"type": "boolean"},
						"note":      map[string]any{"type": "string"},
					},
					"required":             []any{"criterion", "met", "note"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"summary", "suggestedPoints", "rubric"},
		"additionalProperties": false,
	},
}
