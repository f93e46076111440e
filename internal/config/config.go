// Package config reads kalanso settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/kokou-stm/kalanso/internal/llm"
	"github.com/kokou-stm/kalanso/internal/mastery"
)

// Prefix is prepended to every variable name.
const Prefix = "KALANSO_"

// Config holds engine, storage and logging settings. Tags are relative to
// Prefix.
type Config struct {
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	// DB is a file path for sqlite or a DSN for postgres. Empty selects the
	// default data path.
	DB      string `env:"DB"`
	Learner string `env:"LEARNER" envDefault:"local"`

	MasteryThreshold float64       `env:"MASTERY_THRESHOLD" envDefault:"80"`
	PassThreshold    float64       `env:"PASS_THRESHOLD" envDefault:"70"`
	RetryCooldown    time.Duration `env:"RETRY_COOLDOWN" envDefault:"24h"`

	LogFile  string `env:"LOG_FILE"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	PersistQueue int `env:"PERSIST_QUEUE" envDefault:"32"`

	LLM llm.Config
}

// Load reads the optional dotenv files (".env" when none are given) and
// parses the environment. Variables already set win over dotenv values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse reads the current environment over the defaults.
func Parse() (Config, error) {
	cfg := Config{LLM: llm.DefaultConfig()}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LLM = cfg.LLM.Discover()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. The LLM block is checked only when a
// provider is used.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%sDB_DRIVER: unsupported driver %q", Prefix, c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.DB == "" {
		return fmt.Errorf("%sDB is required for postgres", Prefix)
	}
	// mastery.Gate treats zero as unset.
	if c.MasteryThreshold <= 0 || c.MasteryThreshold > 100 {
		return fmt.Errorf("%sMASTERY_THRESHOLD must be above 0 and at most 100, got %g", Prefix, c.MasteryThreshold)
	}
	if c.PassThreshold <= 0 || c.PassThreshold > 100 {
		return fmt.Errorf("%sPASS_THRESHOLD must be above 0 and at most 100, got %g", Prefix, c.PassThreshold)
	}
	if c.RetryCooldown <= 0 {
		return fmt.Errorf("%sRETRY_COOLDOWN must be positive, got %s", Prefix, c.RetryCooldown)
	}
	if c.PersistQueue < 1 {
		return fmt.Errorf("%sPERSIST_QUEUE must be positive", Prefix)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%sLOG_LEVEL: %w", Prefix, err)
	}
	return nil
}

// Gate returns the retry gate for the configured pass threshold and
// cooldown.
func (c Config) Gate() *mastery.Gate {
	return mastery.NewGate(c.PassThreshold, c.RetryCooldown)
}
