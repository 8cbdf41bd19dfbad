// Package main provides the citegraph CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/metrics"
	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool

	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra errors (like missing args) are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "citegraph",
	Short: "Build citation graphs from OpenAlex",
	Long: `citegraph builds per-topic citation graphs of academic papers.

Find papers by title, add them to a topic's graph, and let auto-completion
draw the citation edges between them from OpenAlex reference lists.
Graphs are stored in SQLite and can be served over HTTP or rendered as a
standalone HTML page.

All commands output JSON by default; use --human for readable text.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/citegraph/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.Version = Version
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	if logLevel != "" {
		cfg.LogLevel = strings.ToLower(logLevel)
	}
	logger, err = newLogger(cfg.LogLevel, humanOutput)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return nil
}

// newLogger returns a stderr logger; human mode uses the console writer.
func newLogger(level string, human bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}

	var l zerolog.Logger
	if human {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(lvl).With().Timestamp().Logger(), nil
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase() *storage.DB {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			exitWithError(ExitConfigError, "creating database directory: %v", err)
		}
	}

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// newClient builds the OpenAlex client from the configuration.
func newClient(m *metrics.Collector) *openalex.Client {
	return openalex.NewClient(
		openalex.WithBaseURL(cfg.OpenAlexBaseURL),
		openalex.WithMailto(cfg.Mailto),
		openalex.WithTimeout(cfg.RequestTimeout),
		openalex.WithRetry(cfg.MaxAttempts, cfg.InitialBackoff),
		openalex.WithRateLimit(cfg.RateLimit),
		openalex.WithSearchLimit(cfg.SearchLimit),
		openalex.WithMetrics(m),
		openalex.WithLogger(logger),
	)
}

// newCache wraps a client in the process-wide metadata cache.
func newCache(client *openalex.Client, m *metrics.Collector) *openalex.Cache {
	return openalex.NewCache(client,
		openalex.WithReferenceCap(cfg.ReferenceCap),
		openalex.WithCacheMetrics(m),
		openalex.WithCacheLogger(logger),
	)
}
