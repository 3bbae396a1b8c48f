package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/opendir/internal/model"
)

// maxMarkdownErrors caps the error table of a Markdown report.
const maxMarkdownErrors = 50

// MarkdownWriter renders reports as GitHub flavored Markdown.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter returns a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(r *model.CrawlResult) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Open Directory Crawl")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + r.RootURL + "`"},
			{"Crawl ID", r.ID},
			{"Started", r.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.Duration().Round(time.Millisecond).String()},
			{"Status", resultStatus(r)},
			{"Files on root", strconv.Itoa(r.RootFiles)},
			{"Subdirectories crawled", strconv.Itoa(r.SubdirsVisited)},
			{"Total files", strconv.Itoa(r.TotalLinks())},
			{"Newly stored", strconv.Itoa(r.StoredLinks)},
		},
	})
	md.PlainText("")

	w.writeCategories(md, r.CountByType(), "Files by Category")

	switch {
	case r.TimedOut:
		md.Warningf("The crawl timed out; %d listing(s) were processed before it stopped.", r.SubdirsVisited+1)
	case r.LimitReached:
		md.Note("The page limit was reached; some subdirectories were not crawled.")
	case r.TotalLinks() == 0:
		md.Note("No files with a known category were found.")
	}
	md.PlainText("")

	w.writeErrors(md, r.Errors)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by opendir*")

	return md.Build()
}

// WriteStats implements Writer.
func (w *MarkdownWriter) WriteStats(s *model.Stats) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Link Store Statistics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total links", strconv.Itoa(s.TotalLinks)},
			{"Crawled URLs", strconv.Itoa(s.TotalCrawledURLs)},
			{"Failed URLs", strconv.Itoa(s.ErrorURLs)},
		},
	})
	md.PlainText("")
	w.writeCategories(md, s.LinksByType, "Links by Category")

	return md.Build()
}

func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, counts map[model.FileType]int, title string) {
	md.H2(title)
	md.PlainText("")

	rows := make([][]string, 0, len(model.FileTypes()))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(title),
		piechart.WithShowData(true),
	)
	total := 0
	for _, c := range categoryCounts(counts) {
		rows = append(rows, []string{categoryLabel(c.category), strconv.Itoa(c.count)})
		if c.count > 0 {
			chart.LabelAndIntValue(categoryLabel(c.category), uint64(c.count))
			total += c.count
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Files"},
		Rows:   rows,
	})
	md.PlainText("")

	if total > 0 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, errs []model.URLError) {
	md.H2("Errors")
	md.PlainText("")

	if len(errs) == 0 {
		md.Tip("Every listing was fetched and stored.")
		md.PlainText("")
		return
	}

	shown := errs
	if len(shown) > maxMarkdownErrors {
		shown = shown[:maxMarkdownErrors]
	}
	rows := make([][]string, len(shown))
	for i, e := range shown {
		rows[i] = []string{string(e.Kind), "`" + e.URL + "`", strconv.Itoa(e.Depth), truncate(e.Message, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "URL", "Depth", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
	if len(errs) > len(shown) {
		md.PlainTextf("%d more error(s) omitted.", len(errs)-len(shown))
		md.PlainText("")
	}
}

// truncate shortens s to at most maxLen bytes, ending in "...".
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
