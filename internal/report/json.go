package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nao1215/opendir/internal/model"
)

// JSONWriter writes one JSON document per report.
type JSONWriter struct {
	output io.Writer
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter returns a JSONWriter with compact output unless configured.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// crawlReport adds derived fields to a CrawlResult.
type crawlReport struct {
	*model.CrawlResult
	TotalLinks int                    `json:"totalLinks"`
	ByCategory map[model.FileType]int `json:"byCategory"`
	DurationMS int64                  `json:"durationMs"`
}

// Write implements Writer.
func (w *JSONWriter) Write(r *model.CrawlResult) error {
	return w.encode(crawlReport{
		CrawlResult: r,
		TotalLinks:  r.TotalLinks(),
		ByCategory:  r.CountByType(),
		DurationMS:  r.Duration().Milliseconds(),
	})
}

// WriteStats implements Writer.
func (w *JSONWriter) WriteStats(s *model.Stats) error {
	return w.encode(s)
}

func (w *JSONWriter) encode(v any) error {
	enc := json.NewEncoder(w.output)
	enc.SetIndent("", w.indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}
