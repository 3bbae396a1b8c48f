package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/model"
	"github.com/spf13/cobra"
)

// NewQueueCmd creates the queue command and its subcommands.
func NewQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the crawl queue",
		Long: `Queue manages the listing URLs known to the link store.

Queued URLs start as "pending" and are crawled by "opendir crawl --pending".
The crawler moves them to "in-progress", "completed" or "error".`,
	}

	cmd.AddCommand(newQueueAddCmd())
	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueRemoveCmd())
	return cmd
}

func newQueueAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <listing-url>...",
		Short: "Queue listing URLs for crawling",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range args {
				if err := config.ValidateTargetURL(raw); err != nil {
					return err
				}
			}

			logger := setupLogger(cmd, getVerboseFlag(cmd))
			ctx, stop := signalContext()
			defer stop()

			store, err := openStore(ctx, databaseURI(cmd), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for _, raw := range args {
				added, err := store.AddURL(ctx, raw)
				if err != nil {
					return err
				}
				listing := model.ListingURL(raw)
				if added {
					fmt.Fprintf(out, "Queued %s\n", listing)
				} else {
					fmt.Fprintf(out, "Already known: %s\n", listing)
				}
			}
			return nil
		},
	}
}

func newQueueListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known listing URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusFlag, err := cmd.Flags().GetString("status")
			if err != nil {
				return err
			}
			jsonOut, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			status := model.CrawlStatus(statusFlag)
			if status != "" && !status.Valid() {
				return fmt.Errorf("invalid status %q: use pending, in-progress, completed or error", statusFlag)
			}

			logger := setupLogger(cmd, getVerboseFlag(cmd))
			ctx, stop := signalContext()
			defer stop()

			store, err := openStore(ctx, databaseURI(cmd), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			targets, err := store.CrawledURLs(ctx, status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(targets)
			}
			if len(targets) == 0 {
				fmt.Fprintln(out, "No URLs.")
				return nil
			}
			for _, t := range targets {
				fmt.Fprintf(out, "%-11s %s  %s\n", t.Status, t.UpdatedAt.Local().Format(time.DateTime), t.URL)
				if t.Message != "" {
					fmt.Fprintf(out, "            %s\n", t.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("status", "", "Only list URLs with this status")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func newQueueRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <listing-url>",
		Short: "Remove a listing URL and its error record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(cmd, getVerboseFlag(cmd))
			ctx, stop := signalContext()
			defer stop()

			store, err := openStore(ctx, databaseURI(cmd), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteURL(ctx, args[0]); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("URL is not in the queue: %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
