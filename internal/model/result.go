package model

import (
	"fmt"
	"time"
)

// ErrorKind tells which stage of processing a listing failed.
type ErrorKind string

const (
	// ErrorKindFetch covers network errors, timeouts and non-2xx responses.
	ErrorKindFetch ErrorKind = "fetch"

	// ErrorKindParse covers listing bodies that could not be parsed.
	ErrorKindParse ErrorKind = "parse"

	// ErrorKindStore covers failed writes to the link store.
	ErrorKindStore ErrorKind = "store"
)

// URLError records a failure while processing one listing URL.
// It never aborts the rest of the crawl.
type URLError struct {
	URL     string    `json:"url"`
	Depth   int       `json:"depth"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e URLError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.URL, e.Message)
}

// CrawlResult is the outcome of crawling one root listing and its
// subdirectories.
type CrawlResult struct {
	// ID identifies the crawl run.
	ID string `json:"id"`

	// RootURL is the listing the crawl started from.
	RootURL string `json:"rootUrl"`

	// Files are all classified files found, in discovery order per page.
	Files []DiscoveredLink `json:"files"`

	// RootFiles is the number of files found on the root listing itself.
	RootFiles int `json:"rootFiles"`

	// Subdirectories are the subdirectory candidates found on every fetched
	// listing, whether or not they were followed.
	Subdirectories []string `json:"subdirectories"`

	// SubdirsVisited is the number of subdirectory listings fetched.
	SubdirsVisited int `json:"subdirsVisited"`

	// Errors are the per-listing failures.
	Errors []URLError `json:"errors,omitempty"`

	// LimitReached is set when the page cap stopped the crawl early.
	LimitReached bool `json:"limitReached"`

	// TimedOut is set when the crawl timeout stopped the crawl early.
	TimedOut bool `json:"timedOut"`

	// StoredLinks is the number of links newly written to the store.
	StoredLinks int `json:"storedLinks"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// TotalLinks returns the number of files found across all listings.
func (r *CrawlResult) TotalLinks() int {
	return len(r.Files)
}

// Duration returns how long the crawl took.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountByType returns the number of files found per category.
func (r *CrawlResult) CountByType() map[FileType]int {
	counts := make(map[FileType]int)
	for _, f := range r.Files {
		counts[f.Category]++
	}
	return counts
}

// HasErrors reports whether any listing failed.
func (r *CrawlResult) HasErrors() bool {
	return len(r.Errors) > 0
}
