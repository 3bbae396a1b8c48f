package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/database"
	applog "github.com/nao1215/opendir/internal/log"
	"github.com/nao1215/opendir/internal/report"
	"github.com/spf13/cobra"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// databaseURI returns the --db flag, or the XDG data directory when unset.
func databaseURI(cmd *cobra.Command) string {
	uri, err := cmd.Flags().GetString("db")
	if err != nil || uri == "" {
		return config.XDGDataDir()
	}
	return uri
}

// setupLogger installs the redacting logger as the slog default.
// Logs go to stderr so that reports on stdout stay machine readable.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := applog.New(cmd.ErrOrStderr(), applog.Options{Verbose: verbose})
	slog.SetDefault(logger)
	return logger
}

// openStore opens the link store selected by --db.
func openStore(ctx context.Context, uri string, logger *slog.Logger) (*database.Store, error) {
	store, err := database.Open(ctx, uri, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "backend", store.Backend(), "location", store.Location())
	return store, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadSiteConfigs loads per-host settings.
// A path given explicitly must exist; otherwise a missing file yields an
// empty configuration.
func loadSiteConfigs(path string) (*config.File, error) {
	found := config.FindConfigFile(path)
	switch {
	case found != "":
		cf, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		return cf, nil
	case path != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	default:
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}
}

// reportFormat maps the --json and --markdown flags to a report format.
func reportFormat(jsonOut, markdownOut bool) report.Format {
	switch {
	case jsonOut:
		return report.FormatJSON
	case markdownOut:
		return report.FormatMarkdown
	default:
		return report.FormatSimple
	}
}

// openOutput returns the report destination: path when given, stdout
// otherwise. The returned close function is always safe to call.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	if err := ensureParentDir(path); err != nil {
		return nil, nil, err
	}
	// Reports list every stored URL, so keep them private to the owner.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// ensureParentDir creates the directory holding path.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
