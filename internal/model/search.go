package model

// SearchQuery describes a lookup in the link store.
type SearchQuery struct {
	// Query is matched case-insensitively as a substring of name or URL.
	Query string

	// Category is CategoryAll or a FileType name.
	Category string

	// Limit caps the number of results. Zero or less selects the default.
	Limit int
}

// SearchResult is a single search hit.
type SearchResult struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Category FileType `json:"category"`
}

// ErrorURL is a listing URL that failed at least once.
type ErrorURL struct {
	URL      string `json:"url"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

// Stats are aggregate counts over the link store.
type Stats struct {
	TotalLinks       int                 `json:"totalLinks"`
	LinksByType      map[FileType]int    `json:"linksByType"`
	TotalCrawledURLs int                 `json:"totalCrawledUrls"`
	URLsByStatus     map[CrawlStatus]int `json:"urlsByStatus"`
	ErrorURLs        int                 `json:"errorUrls"`
}
