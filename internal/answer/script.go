package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kokou-stm/kalanso/internal/question"
)

// Scripted is one entry of an answers file, used for headless grading.
type Scripted struct {
	Selected   json.RawMessage   `json:"selected,omitempty"`
	Text       string            `json:"text,omitempty"`
	Value      json.RawMessage   `json:"value,omitempty"`
	Blanks     map[string]string `json:"blanks,omitempty"`
	Order      []string          `json:"order,omitempty"`
	Placements map[string]string `json:"placements,omitempty"`
	Images     []Image           `json:"images,omitempty"`

	// TimeSpent overrides the measured per-question time, in seconds.
	TimeSpent *float64 `json:"timeSpent,omitempty"`
}

// Script maps question id to its scripted answer.
type Script map[string]Scripted

// LoadScript reads a JSON or YAML answers file.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	jsonData, err := question.ToJSON(data, question.FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	var s Script
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return s, nil
}

// State converts a scripted answer into the answer state for q. A missing
// entry yields the initial state, which the validator then rejects or
// accepts as it would an untouched question.
func (s Script) State(q question.Question) (State, error) {
	entry, ok := s[q.Common().ID]
	initial, err := Initial(q, NoShuffle)
	if err != nil || !ok {
		return initial, err
	}

	switch st := initial.(type) {
	case Choice:
		if len(entry.Selected) == 0 {
			return st, nil
		}
		var key question.Key
		if err := json.Unmarshal(entry.Selected, &key); err != nil {
			return nil, fmt.Errorf("question %s: selected: %w", q.Common().ID, err)
		}
		return st.Select(key), nil
	case Boolean:
		if len(entry.Selected) == 0 {
			return st, nil
		}
		var v bool
		if err := json.Unmarshal(entry.Selected, &v); err != nil {
			return nil, fmt.Errorf("question %s: selected must be true or false: %w", q.Common().ID, err)
		}
		return st.Set(v), nil
	case Text:
		return Text{Text: entry.Text}, nil
	case Number:
		return Number{Raw: rawNumber(entry.Value)}, nil
	case Blanks:
		for id, text := range entry.Blanks {
			st = st.Fill(id, text)
		}
		return st, nil
	case Order:
		if len(entry.Order) == 0 {
			return st, nil
		}
		return Order{IDs: append([]string(nil), entry.Order...)}, nil
	case Placement:
		for _, it := range q.(*question.Categorization).Items {
			if cat, ok := entry.Placements[it.ID]; ok {
				st = st.Assign(it.ID, cat)
			}
		}
		return st, nil
	case Uploads:
		return st.Add(entry.Images, nil), nil
	}
	return initial, nil
}

// TimeSpent returns the scripted time for question id, if any.
func (s Script) TimeSpent(id string) (float64, bool) {
	entry, ok := s[id]
	if !ok || entry.TimeSpent == nil {
		return 0, false
	}
	return *entry.TimeSpent, true
}

// rawNumber accepts either a JSON string or a JSON number.
func rawNumber(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
