package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Config.ValidateTargets. Callers can match them with errors.Is.
var (
	// ErrNoTarget is returned when no root URL is given and the crawl queue
	// is not requested either.
	ErrNoTarget = errors.New("no target specified: provide a listing URL or use --pending")

	// ErrInvalidTargetURL is returned when a root URL is not an absolute
	// http or https URL.
	ErrInvalidTargetURL = errors.New("invalid target URL")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlTimeout is returned when the crawl timeout is negative.
	ErrInvalidCrawlTimeout = errors.New("invalid crawl timeout: must be non-negative")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	ErrInvalidDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidMaxSubdirs is returned when the subdirectory fan-out is negative.
	ErrInvalidMaxSubdirs = errors.New("invalid max subdirs: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidSearchLimit is returned when the search limit is negative.
	ErrInvalidSearchLimit = errors.New("invalid search limit: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
