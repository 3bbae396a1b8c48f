package model

import (
	"net/url"
	"strings"
	"time"
)

// CrawlStatus is the lifecycle state of a listing URL.
type CrawlStatus string

const (
	// CrawlStatusPending marks a URL that is queued but not crawled yet.
	CrawlStatusPending CrawlStatus = "pending"

	// CrawlStatusInProgress marks a URL whose listing is being fetched.
	CrawlStatusInProgress CrawlStatus = "in-progress"

	// CrawlStatusCompleted marks a URL whose listing was fetched and stored.
	CrawlStatusCompleted CrawlStatus = "completed"

	// CrawlStatusError marks a URL whose listing could not be processed.
	CrawlStatusError CrawlStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s CrawlStatus) Valid() bool {
	switch s {
	case CrawlStatusPending, CrawlStatusInProgress, CrawlStatusCompleted, CrawlStatusError:
		return true
	default:
		return false
	}
}

// String returns the stored representation of the status.
func (s CrawlStatus) String() string {
	return string(s)
}

// CrawlTarget is a URL known to be a directory listing.
type CrawlTarget struct {
	URL       string      `json:"url"`
	Depth     int         `json:"depth"`
	Status    CrawlStatus `json:"status"`
	Message   string      `json:"message,omitempty"`
	CrawledAt *time.Time  `json:"crawledAt,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ListingURL returns raw in the form a listing is tracked under: trimmed,
// without fragment and with a path ending in a slash. Values that are not
// absolute http or https URLs are only trimmed.
func ListingURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	return u.String()
}
