package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/model"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored links by name or URL",
		Long: `Search looks up stored links whose name or URL contains the query,
ignoring case. Multiple arguments are joined with spaces.

Valid types: all, video, audio, compressed, disk, executable, image, text.

Examples:
  opendir search ubuntu
  opendir search --type video --limit 50 holiday
  opendir search --json "linux iso"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().String("type", model.CategoryAll, "Restrict results to one file type")
	cmd.Flags().IntP("limit", "l", database.DefaultSearchLimit,
		fmt.Sprintf("Maximum number of results (at most %d)", database.MaxSearchLimit))
	cmd.Flags().BoolP("json", "j", false, "Output results as JSON")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	category, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("invalid limit %d: must be non-negative", limit)
	}

	logger := setupLogger(cmd, getVerboseFlag(cmd))
	ctx, stop := signalContext()
	defer stop()

	store, err := openStore(ctx, databaseURI(cmd), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(ctx, model.SearchQuery{
		Query:    strings.Join(args, " "),
		Category: category,
		Limit:    limit,
	})
	switch {
	case errors.Is(err, database.ErrEmptyQuery):
		return errors.New("search query must contain more than wildcards")
	case err != nil:
		return err
	}

	if jsonOut {
		return writeSearchJSON(cmd.OutOrStdout(), results)
	}
	writeSearchText(cmd.OutOrStdout(), results)
	return nil
}

// searchOutput is the JSON shape of search results, matching the API.
type searchOutput struct {
	Results []model.SearchResult `json:"results"`
	Count   int                  `json:"count"`
}

func writeSearchJSON(w io.Writer, results []model.SearchResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(searchOutput{Results: results, Count: len(results)})
}

func writeSearchText(w io.Writer, results []model.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "[%-8s] %s\n", r.Category, r.Name)
		fmt.Fprintf(w, "           %s\n", r.URL)
	}
	fmt.Fprintf(w, "\n%d result(s)\n", len(results))
}
