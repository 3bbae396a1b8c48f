// Package batch crawls several root URLs concurrently.
//
// Each root is crawled by its own crawler.Engine run; the Processor only
// bounds how many roots run at once and collects the outcomes. A failed root
// never stops the others: failures are returned together as a
// *multierror.Error after every root finished.
package batch
