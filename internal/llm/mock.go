package llm

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MockResponse is one canned reply.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays canned responses in order and records requests.
// Content is validated against the request schema like a real provider.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request

	// Fallback answers once the queue is drained. Without it a drained
	// mock reports the provider as unavailable.
	Fallback func(Request) MockResponse
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewOfflineProvider backs KALANSO_LLM_PROVIDER=mock. Every request gets
// the smallest reply its schema accepts, so review drafts can be run
// end to end without a vendor account.
func NewOfflineProvider() *MockProvider {
	return &MockProvider{Fallback: func(req Request) MockResponse {
		return MockResponse{Content: SchemaStub(req.Schema)}
	}}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	var next MockResponse
	switch {
	case len(m.responses) > 0:
		next = m.responses[0]
		m.responses = m.responses[1:]
	case m.Fallback != nil:
		next = m.Fallback(req)
	default:
		return nil, &ErrProviderUnavailable{}
	}
	if next.Err != nil {
		return nil, next.Err
	}
	return finish(req, next.Content, next.Usage, "mock", "end")
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// SchemaStub builds the smallest JSON value s accepts: required object
// properties only, the first enum value, numbers at their minimum, empty
// arrays unless minItems says otherwise. A nil schema yields {}.
func SchemaStub(s *Schema) json.RawMessage {
	if s == nil {
		return json.RawMessage(`{}`)
	}
	out, err := json.Marshal(stubValue(s.Definition))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return out
}

func stubValue(def map[string]any) any {
	if enum, ok := def["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}
	if c, ok := def["const"]; ok {
		return c
	}
	switch schemaType(def) {
	case "object":
		props, _ := def["properties"].(map[string]any)
		obj := map[string]any{}
		required, _ := def["required"].([]any)
		for _, r := range required {
			name, _ := r.(string)
			sub, _ := props[name].(map[string]any)
			obj[name] = stubValue(sub)
		}
		return obj
	case "array":
		items, _ := def["items"].(map[string]any)
		arr := []any{}
		for range int(number(def["minItems"])) {
			arr = append(arr, stubValue(items))
		}
		return arr
	case "string":
		v := "mock"
		if n := int(number(def["minLength"])); n > len(v) {
			v += strings.Repeat(".", n-len(v))
		}
		return v
	case "number", "integer":
		return number(def["minimum"])
	case "boolean":
		return false
	case "null":
		return nil
	}
	return map[string]any{}
}

// schemaType returns the declared type, skipping "null" in a type list.
func schemaType(def map[string]any) string {
	switch t := def["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, _ := v.(string); s != "" && s != "null" {
				return s
			}
		}
	}
	return ""
}

func number(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
