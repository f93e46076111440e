package llm

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrNotConfigured is returned when no provider is selected and no API key
// could be discovered.
var ErrNotConfigured = errors.New("no LLM provider configured")

// Config selects and configures the provider used for review drafts.
// Field tags are relative to the KALANSO_ prefix.
type Config struct {
	// Provider is "anthropic", "openai", "gemini", "openrouter" or "mock".
	// Empty means undecided; see Discover.
	Provider string `env:"LLM_PROVIDER"`

	Anthropic  AnthropicConfig  `envPrefix:"ANTHROPIC_"`
	OpenAI     OpenAIConfig     `envPrefix:"OPENAI_"`
	Gemini     GeminiConfig     `envPrefix:"GEMINI_"`
	OpenRouter OpenRouterConfig `envPrefix:"OPENROUTER_"`
	Retry      RetryConfig

	// Timeout bounds a single draft request, retries included.
	Timeout time.Duration `env:"LLM_TIMEOUT"`
}

type AnthropicConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL"`
}

type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL"`
}

type OpenRouterConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

// RetryConfig configures backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns the defaults applied before the environment is read.
func DefaultConfig() Config {
	return Config{
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv reads KALANSO_* variables over the defaults and then
// falls back to Discover when no provider was chosen.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "KALANSO_"}); err != nil {
		return cfg, fmt.Errorf("parse llm env: %w", err)
	}
	return cfg.Discover(), nil
}

// Discover fills in Provider from the first vendor API key found, KALANSO_
// variables first, then the vendors' own variable names.
func (c Config) Discover() Config {
	if c.Provider != "" {
		return c
	}
	switch {
	case c.Anthropic.APIKey != "":
		c.Provider = "anthropic"
	case c.OpenAI.APIKey != "":
		c.Provider = "openai"
	case c.Gemini.APIKey != "":
		c.Provider = "gemini"
	case c.OpenRouter.APIKey != "":
		c.Provider = "openrouter"
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		c.Provider, c.Anthropic.APIKey = "anthropic", os.Getenv("ANTHROPIC_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		c.Provider, c.OpenAI.APIKey = "openai", os.Getenv("OPENAI_API_KEY")
	case os.Getenv("GEMINI_API_KEY") != "":
		c.Provider, c.Gemini.APIKey = "gemini", os.Getenv("GEMINI_API_KEY")
	case os.Getenv("OPENROUTER_API_KEY") != "":
		c.Provider, c.OpenRouter.APIKey = "openrouter", os.Getenv("OPENROUTER_API_KEY")
	}
	return c
}

// Validate checks that the selected provider has an API key.
func (c Config) Validate() error {
	var key, name string
	switch c.Provider {
	case "":
		return ErrNotConfigured
	case "mock":
		return nil
	case "anthropic":
		key, name = c.Anthropic.APIKey, "KALANSO_ANTHROPIC_API_KEY"
	case "openai":
		key, name = c.OpenAI.APIKey, "KALANSO_OPENAI_API_KEY"
	case "gemini":
		key, name = c.Gemini.APIKey, "KALANSO_GEMINI_API_KEY"
	case "openrouter":
		key, name = c.OpenRouter.APIKey, "KALANSO_OPENROUTER_API_KEY"
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s is required for the %s provider", name, c.Provider)
	}
	return nil
}
