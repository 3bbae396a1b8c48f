package report

import (
	"fmt"
	"io"

	"github.com/nao1215/opendir/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer renders reports to an output.
type Writer interface {
	// Write renders the result of one crawl.
	Write(result *model.CrawlResult) error

	// WriteStats renders link store statistics.
	WriteStats(stats *model.Stats) error
}

// Format selects a Writer implementation.
type Format string

const (
	// FormatSimple is the plain text terminal format.
	FormatSimple Format = "simple"
	// FormatJSON is indented JSON.
	FormatJSON Format = "json"
	// FormatMarkdown is GitHub flavored Markdown.
	FormatMarkdown Format = "markdown"
)

// New returns the writer for format.
func New(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatSimple, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// MultiWriter writes every report to all of its writers, stopping at the
// first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter combines writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(result *model.CrawlResult) error {
	for _, w := range m.writers {
		if err := w.Write(result); err != nil {
			return err
		}
	}
	return nil
}

// WriteStats implements Writer.
func (m *MultiWriter) WriteStats(stats *model.Stats) error {
	for _, w := range m.writers {
		if err := w.WriteStats(stats); err != nil {
			return err
		}
	}
	return nil
}

var titleCaser = cases.Title(language.English)

// categoryLabel turns "compressed" into "Compressed".
func categoryLabel(ft model.FileType) string {
	return titleCaser.String(ft.String())
}

// categoryCounts lists every storable category with its count, in the
// fixed category order, so reports always show the same rows.
func categoryCounts(counts map[model.FileType]int) []categoryCount {
	out := make([]categoryCount, 0, len(model.FileTypes()))
	for _, ft := range model.FileTypes() {
		out = append(out, categoryCount{category: ft, count: counts[ft]})
	}
	return out
}

type categoryCount struct {
	category model.FileType
	count    int
}

// resultStatus is a one-word outcome of a crawl.
func resultStatus(r *model.CrawlResult) string {
	switch {
	case r.TimedOut:
		return "timed out (partial results)"
	case r.HasErrors():
		return "completed with errors"
	default:
		return "completed"
	}
}
