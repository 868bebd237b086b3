package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	cfgpkg "github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger receives pipeline diagnostics; stderr, level from config or flags
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

var rootCmd = &cobra.Command{
	Use:   "fuzzyreg",
	Short: "fuzzyreg: interpretable fuzzy rule regression for tabular data",
	Long: `fuzzyreg fuzzifies the columns of a CSV/TSV/XLSX dataset, builds IF-THEN rules
from the linguistic sets, turns every rule into a feature by fuzzy inference and
fits a sparse regression over them. The result is a ranked list of readable rules
with coefficients, p-values and fit metrics.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.fuzzyreg/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log pipeline progress at debug level")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostics level: debug|info|warn|error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	}
	cfg = c

	level := "warn"
	if cfg != nil && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	if rootCmd.PersistentFlags().Changed("log-level") && logLevel != "" {
		level = logLevel
	}
	if debug {
		level = "debug"
	}
	logger = newLogger(level)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
