package question

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of an assessment file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Unknown extensions are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// assessmentDoc is the wire shape of an assessment before questions are resolved.
type assessmentDoc struct {
	Assessment
	RawQuestions []json.RawMessage `json:"questions"`
}

type typeProbe struct {
	Type Type `json:"type"`
}

// Load reads, decodes and validates an assessment file.
// Validation problems are returned together as ValidationErrors.
func Load(path string) (*Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assessment: %w", err)
	}
	a, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	if errs := Validate(a, DefaultValidators()); len(errs) > 0 {
		return nil, errs
	}
	return a, nil
}

// Parse decodes an assessment and checks it against the file schema.
// It does not run the structural validators.
func Parse(data []byte, format Format) (*Assessment, error) {
	jsonData, err := ToJSON(data, format)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	if err := checkSchema(doc); err != nil {
		return nil, ValidationErrors{{Validator: "schema", Message: err.Error()}}
	}

	var raw assessmentDoc
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}

	a := raw.Assessment
	a.Questions = make([]Question, 0, len(raw.RawQuestions))
	for i, rq := range raw.RawQuestions {
		q, err := DecodeQuestion(rq)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		a.Questions = append(a.Questions, q)
	}
	return &a, nil
}

// DecodeQuestion decodes a single tagged question object.
func DecodeQuestion(data []byte) (Question, error) {
	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode question type: %w", err)
	}
	q, err := New(probe.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("decode %s question: %w", probe.Type, err)
	}
	return q, nil
}

// ToJSON converts YAML input to JSON so both formats share one decode path.
func ToJSON(data []byte, format Format) ([]byte, error) {
	if format != FormatYAML {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	out, err := json.Marshal(stringKeys(v))
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}

// stringKeys rewrites YAML maps with non-string keys (e.g. numeric option keys)
// into JSON-compatible maps.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = stringKeys(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	}
	return v
}
