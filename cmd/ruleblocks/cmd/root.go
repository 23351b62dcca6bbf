package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/ruleblocks/internal/core/config"
	"github.com/solatis/ruleblocks/internal/core/db"
	"github.com/solatis/ruleblocks/internal/registry"
	"github.com/solatis/ruleblocks/internal/validator"
)

const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string

	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:           "ruleblocks",
	Short:         "Declarative rule engine for validating structured data",
	Long:          `ruleblocks compiles rule trees into flat block sets and validates input against named rule sets.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or text)", format)
	}
}

// loadConfig applies --db-url over the loaded configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.Store.DBURL = dbURL
	}
	return cfg, nil
}

func defaultRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg, err := registry.Default(
		validator.WithLimits(cfg.Limits()),
		validator.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule sets: %w", err)
	}
	return reg, nil
}

// openStore opens the run store, or returns nil when no database is configured.
// The caller closes the returned closer.
func openStore(cfg *config.Config) (*db.Store, io.Closer, error) {
	if cfg.Store.DBURL == "" {
		return nil, nil, nil
	}
	database, err := db.Open(cfg.Store.DBURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.RequireMigrations(database); err != nil {
		database.Close()
		return nil, nil, err
	}
	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return store, database, nil
}
