package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/jokeimport/internal/app"
	"github.com/nao1215/jokeimport/internal/config"
	applog "github.com/nao1215/jokeimport/internal/log"
	"github.com/nao1215/jokeimport/internal/report"
)

// errConflictingFormats is returned when more than one report format is requested.
var errConflictingFormats = errors.New("conflicting report formats: choose either --json or --markdown")

// addStoreFlags registers the node store flags.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", config.DriverSQLite, "Node store driver (sqlite or mongo)")
	cmd.Flags().String("db-dir", "", "SQLite database directory (default: ~/.local/share/jokeimport)")
	cmd.Flags().String("mongo-uri", "", "MongoDB connection string (required with --store mongo)")
	cmd.Flags().String("mongo-db", config.DefaultMongoDatabase, "MongoDB database name")
}

// addFetchFlags registers the upstream request flags.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each upstream request")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency, "Maximum number of simultaneous requests")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy for upstream requests (host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header sent upstream")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize, "Maximum bytes read from one response")
}

// addReportFlags registers the output format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")
	cmd.Flags().StringP("output", "o", "", "Write output to file (a text copy still goes to stdout)")
}

// getBoolFlag reads a flag from the command, falling back to the root's
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag is getBoolFlag for string flags.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// buildConfig creates a Config from the flags the command registered.
// Flags the command does not carry keep their defaults.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	cfg.SettingsPath = getStringFlag(cmd, "settings")
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.JSONLog = getBoolFlag(cmd, "json-log")

	var err error
	if flags.Lookup("store") != nil {
		if cfg.StoreDriver, err = flags.GetString("store"); err != nil {
			return nil, err
		}
		dbDir, err := flags.GetString("db-dir")
		if err != nil {
			return nil, err
		}
		if dbDir != "" {
			cfg.DBDir = dbDir
		}
		if cfg.MongoURI, err = flags.GetString("mongo-uri"); err != nil {
			return nil, err
		}
		if cfg.MongoDatabase, err = flags.GetString("mongo-db"); err != nil {
			return nil, err
		}
	}

	if flags.Lookup("timeout") != nil {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}

	if flags.Lookup("listen") != nil {
		if cfg.ListenAddress, err = flags.GetString("listen"); err != nil {
			return nil, err
		}
		if cfg.Schedule, err = flags.GetString("schedule"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// setupLogger creates the process logger. Logs go to stderr so that
// reports on stdout stay machine readable.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return applog.NewLogger(cmd.ErrOrStderr(), applog.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.JSONLog,
		Channel: config.ModuleName,
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// withApp builds the runtime config and the App, runs fn and closes the App.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	if !a.Installed() {
		logger.Warn("settings not installed, using defaults", "settings", a.SettingsStore().Path())
	}

	return fn(ctx, a)
}

// openOutput returns the destination for reports: the file named by the
// --output flag, or the command's stdout.
func openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// checkReportFlags rejects --json combined with --markdown.
// Commands call it before doing any work.
func checkReportFlags(cmd *cobra.Command) error {
	_, err := newReportWriter(cmd, io.Discard)
	return err
}

// newReportWriter picks the report format from the --json and --markdown flags.
func newReportWriter(cmd *cobra.Command, out io.Writer) (report.Writer, error) {
	jsonReport, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	markdownReport, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	switch {
	case jsonReport && markdownReport:
		return nil, errConflictingFormats
	case jsonReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion())), nil
	case markdownReport:
		return report.NewMarkdownWriter(out), nil
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(getBoolFlag(cmd, "verbose"))), nil
	}
}

// openReportWriter opens the --output destination and builds the writer for it.
// With a file destination the chosen format goes to the file and a text copy
// goes to stdout.
func openReportWriter(cmd *cobra.Command) (report.Writer, io.Writer, func() error, error) {
	out, closeOutput, err := openOutput(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	writer, err := newReportWriter(cmd, out)
	if err != nil {
		_ = closeOutput() //nolint:errcheck
		return nil, nil, nil, err
	}
	if out != cmd.OutOrStdout() {
		text := report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(getBoolFlag(cmd, "verbose")))
		writer = report.NewMultiWriter(writer, text)
	}
	return writer, out, closeOutput, nil
}
