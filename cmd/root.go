package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kokou-stm/kalanso/internal/config"
	"github.com/kokou-stm/kalanso/internal/logging"
	"github.com/kokou-stm/kalanso/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "kalanso",
	Short: "Assessment scoring and progression engine",
	Long: "Kalanso scores skill assessments, gates progression on mastery and queues " +
		"hands-on work for coach review.",
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database file or DSN (overrides KALANSO_DB)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite or postgres (overrides KALANSO_DB_DRIVER)")
	rootCmd.PersistentFlags().String("learner", "", "Learner id (overrides KALANSO_LEARNER)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Also log to stderr")

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is what every data command needs: settings, a logger and the store.
type env struct {
	cfg      config.Config
	log      *zap.Logger
	store    *store.Store
	closeLog func()
}

// setup loads configuration, applies flag overrides and opens the store.
// The TUI passes console=false so nothing is logged over the screen.
func setup(cmd *cobra.Command, console bool) (*env, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if d, _ := cmd.Flags().GetString("driver"); d != "" {
		cfg.DBDriver = d
	}
	if l, _ := cmd.Flags().GetString("learner"); l != "" {
		cfg.Learner = l
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := logging.Options{File: cfg.LogFile, Level: cfg.LogLevel}
	if v, _ := cmd.Flags().GetBool("verbose"); v && console {
		opts.Console = os.Stderr
	}
	log, closeLog, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	dsn, err := resolveDBPath(cmd, cfg)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(cfg.DBDriver, dsn)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Debug("store opened", zap.String("driver", cfg.DBDriver))
	return &env{cfg: cfg, log: log, store: s, closeLog: closeLog}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close store", zap.Error(err))
	}
	e.closeLog()
}

// resolveDBPath returns the database location using --db (highest
// priority), then KALANSO_DB, then the default XDG path. Postgres DSNs are
// passed through.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	p, _ := cmd.Flags().GetString("db")
	if p == "" {
		p = cfg.DB
	}
	if cfg.DBDriver == store.DriverPostgres {
		if p == "" {
			return "", fmt.Errorf("a DSN is required for postgres")
		}
		return p, nil
	}
	if p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
