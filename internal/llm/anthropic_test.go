package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

const draftJSON = `{"summary":"Joint is tight","points":4}`

// anthropicServer answers every request with status and body. header lists
// extra response headers as key, value pairs.
func anthropicServer(t *testing.T, status int, body map[string]any, header ...string) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i+1 < len(header); i += 2 {
			w.Header().Set(header[i], header[i+1])
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(
		AnthropicConfig{APIKey: "test-key", Model: "claude-haiku"},
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func anthropicError(kind string) map[string]any {
	return map[string]any{"type": "error", "error": map[string]any{"type": kind, "message": kind}}
}

func TestAnthropicProvider(t *testing.T) {
	req := Request{
		System:    "You review woodworking submissions.",
		Messages:  []Message{{Role: RoleUser, Content: "Draft a note."}},
		Schema:    noteSchema(),
		MaxTokens: 256,
	}

	t.Run("structured output", func(t *testing.T) {
		p := anthropicServer(t, http.StatusOK, anthropicMessage(draftJSON, "end_turn"))
		resp, err := p.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Usage.InputTokens != 50 || resp.Usage.TotalTokens != 80 {
			t.Errorf("usage = %+v", resp.Usage)
		}
		if resp.StopReason != "end" || resp.Model != "claude-haiku-4-5-20251001" {
			t.Errorf("stop=%q model=%q", resp.StopReason, resp.Model)
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		p := anthropicServer(t, http.StatusOK, anthropicMessage(`{"summary":1}`, "end_turn"))
		_, err := p.Generate(context.Background(), req)
		var inv *ErrInvalidResponse
		if !errors.As(err, &inv) {
			t.Fatalf("got %T (%v), want *ErrInvalidResponse", err, err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		p := anthropicServer(t, http.StatusOK, anthropicMessage(`{"summ`, "max_tokens"))
		_, err := p.Generate(context.Background(), req)
		var mt *ErrMaxTokensExceeded
		if !errors.As(err, &mt) {
			t.Fatalf("got %T (%v), want *ErrMaxTokensExceeded", err, err)
		}
	})

	t.Run("rate limit", func(t *testing.T) {
		p := anthropicServer(t, http.StatusTooManyRequests, anthropicError("rate_limit_error"), "Retry-After", "3")
		_, err := p.Generate(context.Background(), req)
		var rl *ErrRateLimit
		if !errors.As(err, &rl) {
			t.Fatalf("got %T (%v), want *ErrRateLimit", err, err)
		}
		if rl.RetryAfter != 3*time.Second {
			t.Errorf("RetryAfter = %v, want 3s from the header", rl.RetryAfter)
		}
	})

	t.Run("bad key", func(t *testing.T) {
		p := anthropicServer(t, http.StatusUnauthorized, anthropicError("authentication_error"))
		_, err := p.Generate(context.Background(), req)
		var rej *ErrRequestRejected
		if !errors.As(err, &rej) || rej.Status != http.StatusUnauthorized {
			t.Fatalf("got %T (%v), want *ErrRequestRejected 401", err, err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		p := anthropicServer(t, http.StatusInternalServerError, anthropicError("api_error"))
		_, err := p.Generate(context.Background(), req)
		var unavail *ErrProviderUnavailable
		if !errors.As(err, &unavail) {
			t.Fatalf("got %T (%v), want *ErrProviderUnavailable", err, err)
		}
	})
}

func TestNewAnthropicProvider(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{}); err == nil {
		t.Fatal("expected error for missing key")
	}
	tests := map[string]string{
		"claude-haiku":             "claude-haiku-4-5-20251001",
		"claude-sonnet":            "claude-sonnet-4-5-20250929",
		"claude-sonnet-4-20250514": "claude-sonnet-4-20250514",
	}
	for alias, want := range tests {
		p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: alias})
		if err != nil {
			t.Fatal(err)
		}
		if p.ModelID() != want {
			t.Errorf("ModelID(%q) = %q, want %q", alias, p.ModelID(), want)
		}
	}
}
