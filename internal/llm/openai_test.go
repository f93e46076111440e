package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func openAIServer(t *testing.T, status int, body map[string]any, seen *map[string]any) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIProvider(t *testing.T) {
	req := Request{
		System:    "You review woodworking submissions.",
		Messages:  []Message{{Role: RoleUser, Content: "Draft a note."}},
		Schema:    noteSchema(),
		MaxTokens: 256,
	}

	t.Run("structured output", func(t *testing.T) {
		var seen map[string]any
		p := openAIServer(t, http.StatusOK, chatCompletion(draftJSON, "stop"), &seen)
		resp, err := p.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
			t.Errorf("usage = %+v", resp.Usage)
		}
		format, _ := seen["response_format"].(map[string]any)
		if format["type"] != "json_schema" {
			t.Errorf("response_format = %v, want json_schema", seen["response_format"])
		}
		if msgs, _ := seen["messages"].([]any); len(msgs) != 2 {
			t.Errorf("sent %d messages, want system + user", len(msgs))
		}
	})

	t.Run("no choices", func(t *testing.T) {
		body := chatCompletion("", "stop")
		body["choices"] = []any{}
		p := openAIServer(t, http.StatusOK, body, nil)
		_, err := p.Generate(context.Background(), req)
		var inv *ErrInvalidResponse
		if !errors.As(err, &inv) {
			t.Fatalf("got %T (%v), want *ErrInvalidResponse", err, err)
		}
	})

	t.Run("length finish", func(t *testing.T) {
		p := openAIServer(t, http.StatusOK, chatCompletion(`{"sum`, "length"), nil)
		_, err := p.Generate(context.Background(), req)
		var mt *ErrMaxTokensExceeded
		if !errors.As(err, &mt) {
			t.Fatalf("got %T (%v), want *ErrMaxTokensExceeded", err, err)
		}
	})

	t.Run("rate limit", func(t *testing.T) {
		p := openAIServer(t, http.StatusTooManyRequests,
			map[string]any{"error": map[string]any{"message": "slow down", "type": "rate_limit", "code": "rate_limit"}}, nil)
		_, err := p.Generate(context.Background(), req)
		var rl *ErrRateLimit
		if !errors.As(err, &rl) {
			t.Fatalf("got %T (%v), want *ErrRateLimit", err, err)
		}
	})

	t.Run("bad key", func(t *testing.T) {
		p := openAIServer(t, http.StatusUnauthorized,
			map[string]any{"error": map[string]any{"message": "invalid key", "type": "invalid_request_error"}}, nil)
		_, err := p.Generate(context.Background(), req)
		var rej *ErrRequestRejected
		if !errors.As(err, &rej) {
			t.Fatalf("got %T (%v), want *ErrRequestRejected", err, err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		p := openAIServer(t, http.StatusInternalServerError,
			map[string]any{"error": map[string]any{"message": "oops", "type": "server_error"}}, nil)
		_, err := p.Generate(context.Background(), req)
		var unavail *ErrProviderUnavailable
		if !errors.As(err, &unavail) {
			t.Fatalf("got %T (%v), want *ErrProviderUnavailable", err, err)
		}
	})
}

func TestNewOpenAIProvider(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Fatal("expected error for missing key")
	}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "gpt-4o" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}
