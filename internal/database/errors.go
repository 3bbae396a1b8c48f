package database

import "errors"

var (
	// ErrNotFound is returned when a URL to delete is not in the crawl queue.
	ErrNotFound = errors.New("not found")

	// ErrEmptyQuery is returned by Search for empty or wildcard-only queries.
	ErrEmptyQuery = errors.New("search query must contain at least one non-wildcard character")

	// ErrUnknownCategory is returned by Search for unknown category names.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidLink is returned by UpsertLinks for links that must not be
	// stored: an empty URL or a category other than the storable ones.
	ErrInvalidLink = errors.New("invalid link")

	// ErrInvalidStatus is returned for unknown crawl statuses.
	ErrInvalidStatus = errors.New("invalid crawl status")
)
