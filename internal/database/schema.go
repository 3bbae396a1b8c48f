package database

import (
	"strconv"
	"strings"
)

// dialect holds what differs between the SQL backends.
type dialect struct {
	name string

	// schema creates every table and index if missing.
	schema string

	// numbered placeholders ($1, $2, ...) instead of "?".
	numbered bool

	// lower is the SQL function folding text to lower case.
	lower string
}

var sqliteDialect = dialect{
	name:  "sqlite",
	lower: sqliteLowerFunc,
	schema: `
	-- Classified files found on listing pages
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_links_type ON links(type);

	-- Listing URLs and their crawl lifecycle
	CREATE TABLE IF NOT EXISTS crawled_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT NOT NULL DEFAULT '',
		crawled_at DATETIME,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_crawled_urls_status ON crawled_urls(status);

	-- Listing URLs that failed at least once
	CREATE TABLE IF NOT EXISTS error_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		error_message TEXT NOT NULL DEFAULT '',
		attempts INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`,
}

var postgresDialect = dialect{
	name:     "postgres",
	numbered: true,
	lower:    "LOWER",
	schema: `
	CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_links_type ON links(type);

	CREATE TABLE IF NOT EXISTS crawled_urls (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT NOT NULL DEFAULT '',
		crawled_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_crawled_urls_status ON crawled_urls(status);

	CREATE TABLE IF NOT EXISTS error_urls (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		error_message TEXT NOT NULL DEFAULT '',
		attempts INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);
	`,
}

// rebind rewrites "?" placeholders for dialects with numbered parameters.
// Queries must not contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
