// Package report renders crawl results and store statistics.
//
// Three formats are supported: a plain text summary for the terminal, JSON
// for other tools, and Markdown (with a mermaid pie chart of file
// categories) for sharing. All writers implement Writer and can be combined
// with MultiWriter to print to the terminal and a file at once.
package report
