// Package database stores discovered links, the crawl status of listing URLs
// and the log of failed listings.
//
// Two backends share the same SQL: SQLite (modernc.org/sqlite, the default,
// a single file under the XDG data directory) and PostgreSQL (lib/pq,
// selected with a postgres:// URI). Uniqueness of a link is enforced by the
// database on the url column and inserts use ON CONFLICT DO NOTHING, so
// concurrent crawl workers can write the same link without coordination.
//
// The Store also serves keyword search over stored links and aggregate
// statistics.
package database
