package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/report"
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show link store statistics",
		Long: `Stats prints the number of stored links per file type, the crawl
queue per status and the number of listing URLs that failed.

Examples:
  opendir stats
  opendir stats --errors 20
  opendir stats --markdown > stats.md`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().Int("errors", 0,
		"Also list up to N failed listing URLs (text output only)")

	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, _ []string) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return config.ErrConflictingReportFormats
	}
	errorLimit, err := cmd.Flags().GetInt("errors")
	if err != nil {
		return err
	}
	if errorLimit > 0 && (jsonOut || markdownOut) {
		return errors.New("--errors can only be used with the text output")
	}

	logger := setupLogger(cmd, getVerboseFlag(cmd))
	ctx, stop := signalContext()
	defer stop()

	store, err := openStore(ctx, databaseURI(cmd), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	writer, err := report.New(reportFormat(jsonOut, markdownOut), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := writer.WriteStats(stats); err != nil {
		return err
	}

	if errorLimit <= 0 {
		return nil
	}
	failed, err := store.ErrorURLs(ctx, errorLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nFailed listings (%d):\n", len(failed))
	for _, f := range failed {
		fmt.Fprintf(out, "  %s (attempts: %d)\n    %s\n", f.URL, f.Attempts, f.Message)
	}
	return nil
}
