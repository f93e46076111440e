package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func noteSchema() *Schema {
	return &Schema{
		Name: "test-note",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
				"points":  map[string]any{"type": "number", "minimum": 0},
				"verdict": map[string]any{"type": "string", "enum": []any{"met", "unmet"}},
				"rubric": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":       "object",
						"properties": map[string]any{"criterion": map[string]any{"type": "string"}},
						"required":   []any{"criterion"},
					},
				},
			},
			"required": []any{"summary", "points"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"summary":"ok","points":3,"verdict":"met"}`, false},
		{"optional fields omitted", `{"summary":"ok","points":0}`, false},
		{"nested valid", `{"summary":"ok","points":1,"rubric":[{"criterion":"square"}]}`, false},
		{"missing required", `{"summary":"ok"}`, true},
		{"wrong type", `{"summary":"ok","points":"three"}`, true},
		{"below minimum", `{"summary":"ok","points":-1}`, true},
		{"bad enum", `{"summary":"ok","points":1,"verdict":"maybe"}`, true},
		{"nested missing", `{"summary":"ok","points":1,"rubric":[{}]}`, true},
		{"malformed", `{not json}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(noteSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("got %T, want *ErrInvalidResponse", err)
				}
			}
		})
	}
}

func TestValidateResponseNilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`anything`)); err != nil {
		t.Fatalf("nil schema should accept anything: %v", err)
	}
}
