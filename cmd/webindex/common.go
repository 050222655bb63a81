package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/webindex/internal/config"
	wilog "github.com/nao1215/webindex/internal/log"
	"github.com/nao1215/webindex/internal/metrics"
	"github.com/nao1215/webindex/internal/report"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// stringFlag returns a string flag, or def when the command was built
// without it (for example when run outside the root command).
func stringFlag(cmd *cobra.Command, name, def string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return def
	}
	return v
}

// setupLogger creates the process logger and makes it the slog default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		logJSON = false
	}
	logger := wilog.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), logJSON)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// loadConfig builds a Config from the global flags and the configuration file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.DataDir = stringFlag(cmd, "data-dir", cfg.DataDir)
	cfg.ConfigFilePath = stringFlag(cmd, "config", "")
	cfg.MetricsFile = stringFlag(cmd, "metrics-file", "")

	// An explicit --config must exist; the search path is optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = file
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// addReportFlags adds the --json and --markdown output flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format (mutually exclusive with --json)")
}

// applyReportFlags copies the output flags into cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	return nil
}

// newReportWriter returns the Writer selected by cfg, writing to stdout.
func newReportWriter(cmd *cobra.Command, cfg *config.Config) report.Writer {
	format := report.FormatFor(cfg.JSONReport, cfg.MarkdownReport)
	if format == report.FormatText {
		return report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(cfg.Verbose))
	}
	return report.NewWriter(cmd.OutOrStdout(), format)
}

// writeMetrics dumps rec to cfg.MetricsFile when one was requested.
func writeMetrics(cfg *config.Config, rec *metrics.Recorder, logger *slog.Logger) error {
	if cfg.MetricsFile == "" {
		return nil
	}
	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	logger.Debug("metrics written", "path", cfg.MetricsFile)
	return nil
}

// isInterrupted reports whether err comes from a cancelled command.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
