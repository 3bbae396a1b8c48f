package database

import (
	"database/sql"
	"time"
)

// timestampFormats contains the timestamp formats the drivers may return.
// The order matters: more specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite CURRENT_TIMESTAMP
	time.RFC3339Nano,          // time.Time converted by database/sql
	time.RFC3339,              // values written by this package
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp parses s with the known formats and returns the zero time
// when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseNullTimestamp is parseTimestamp for nullable columns.
func parseNullTimestamp(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTimestamp(s.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

// formatTimestamp is the representation written to timestamp columns.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
