// Package crawler discovers files exposed through open web directory listings.
//
// # Components
//
//   - HTTPFetcher: retrieves listing pages with a fixed browser identity and
//     a bounded timeout; failures come back as *FetchError
//   - ParseListing: extracts anchors (href and text) from a listing page in
//     document order
//   - Classify: maps a file URL to a model.FileType by literal suffix
//   - ExtractLinks: splits anchors into classified files and subdirectory
//     candidates
//   - Engine: walks a listing tree level by level with a bounded worker
//     pool, writing every page's files to a LinkStore
//
// # Limits
//
// A crawl is bounded three ways. Depth limits how far below the root listing
// subdirectories are followed. MaxSubdirs limits how many subdirectory
// candidates are followed from a single listing page. MaxPages limits the
// total number of listing pages fetched for one root URL. Every listing URL
// is fetched at most once per crawl; URLs are compared after normalization,
// so sort-order query strings and fragments do not create new pages.
//
// # Failures
//
// A failure on one listing is recorded in the store's error log and in the
// CrawlResult, and never stops sibling or parent listings.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(crawler.WithTimeout(30 * time.Second))
//	engine := crawler.NewEngine(fetcher, store, crawler.WithMaxDepth(3))
//	result, err := engine.Crawl(ctx, "http://files.example.com/pub/")
package crawler
