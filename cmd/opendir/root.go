package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for opendir.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opendir",
		Short: "Crawler and search index for open directory listings",
		Long: `opendir crawls open directory listings served by web servers with
autoindex enabled. Every file link found on a listing is classified by its
extension (video, audio, compressed, disk, executable, image, text) and stored
in a local SQLite database or a PostgreSQL server.

The stored links can be searched from the command line or through the
JSON API started by "opendir serve".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("db", "",
		"Link store: SQLite file or directory, or postgres:// URI (default: XDG data directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewQueueCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
