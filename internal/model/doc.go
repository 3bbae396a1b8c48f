// Package model defines the data structures shared by the crawler, the link
// store, the HTTP server and the report writers.
//
// The main types are:
//   - FileType: the coarse category derived from a file URL's suffix
//   - DiscoveredLink: a classified file found on a listing page
//   - CrawlTarget: a listing URL and its crawl lifecycle state
//   - CrawlResult: everything one crawl of a root listing produced
//   - SearchQuery / SearchResult: the search index contract
//   - Stats: aggregate counts over the link store
//
// All types serialize to JSON for reports and API responses.
package model
