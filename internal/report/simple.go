package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/opendir/internal/model"
)

// SimpleWriter prints a plain text summary.
type SimpleWriter struct {
	output io.Writer

	// verbose also lists every discovered file.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every file in addition to the summary.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter returns a SimpleWriter printing to output.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(r *model.CrawlResult) error {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Crawl of %s\n", r.RootURL)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Status:           %s\n", resultStatus(r))
	fmt.Fprintf(&sb, "Duration:         %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Files on root:    %d\n", r.RootFiles)
	fmt.Fprintf(&sb, "Subdirs crawled:  %d\n", r.SubdirsVisited)
	fmt.Fprintf(&sb, "Total files:      %d\n", r.TotalLinks())
	fmt.Fprintf(&sb, "Newly stored:     %d\n", r.StoredLinks)
	if r.LimitReached {
		sb.WriteString("Page limit reached; some subdirectories were not crawled.\n")
	}

	counts := r.CountByType()
	if len(counts) > 0 {
		sb.WriteString("\nBy category:\n")
		for _, c := range categoryCounts(counts) {
			if c.count == 0 {
				continue
			}
			fmt.Fprintf(&sb, "  %-12s %d\n", categoryLabel(c.category), c.count)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "\nErrors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "  [%s] %s: %s\n", e.Kind, e.URL, e.Message)
		}
	}

	if w.verbose && len(r.Files) > 0 {
		sb.WriteString("\nFiles:\n")
		for _, f := range r.Files {
			fmt.Fprintf(&sb, "  %-10s %s\n", f.Category, f.URL)
		}
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w.output, sb.String())
	return err
}

// WriteStats implements Writer.
func (w *SimpleWriter) WriteStats(s *model.Stats) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Total links:       %d\n", s.TotalLinks)
	for _, c := range categoryCounts(s.LinksByType) {
		fmt.Fprintf(&sb, "  %-12s %d\n", categoryLabel(c.category), c.count)
	}
	fmt.Fprintf(&sb, "Crawled URLs:      %d\n", s.TotalCrawledURLs)

	statuses := make([]string, 0, len(s.URLsByStatus))
	for st := range s.URLsByStatus {
		statuses = append(statuses, st.String())
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(&sb, "  %-12s %d\n", st, s.URLsByStatus[model.CrawlStatus(st)])
	}
	fmt.Fprintf(&sb, "Failed URLs:       %d\n", s.ErrorURLs)

	_, err := io.WriteString(w.output, sb.String())
	return err
}
