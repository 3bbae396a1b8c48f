package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/opendir/internal/model"
)

// UpdateCrawlStatus records the status of a listing URL, inserting the URL
// if it is unknown. Moving to completed also stamps crawled_at.
func (s *Store) UpdateCrawlStatus(ctx context.Context, rawURL string, status model.CrawlStatus, message string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var crawledAt any
	if status == model.CrawlStatusCompleted {
		crawledAt = formatTimestamp(time.Now())
	}

	_, err := s.exec(ctx, `
		INSERT INTO crawled_urls (url, status, message, crawled_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (url) DO UPDATE SET
			status = excluded.status,
			message = excluded.message,
			crawled_at = COALESCE(excluded.crawled_at, crawled_urls.crawled_at),
			updated_at = CURRENT_TIMESTAMP
	`, rawURL, status.String(), message, crawledAt)
	if err != nil {
		return fmt.Errorf("failed to update crawl status: %w", err)
	}
	return nil
}

// RecordError logs a failure for a listing URL. Repeated failures of the
// same URL increment its attempt counter and keep the latest message.
func (s *Store) RecordError(ctx context.Context, rawURL, message string) error {
	_, err := s.exec(ctx, `
		INSERT INTO error_urls (url, error_message, attempts, created_at, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (url) DO UPDATE SET
			error_message = excluded.error_message,
			attempts = error_urls.attempts + 1,
			updated_at = CURRENT_TIMESTAMP
	`, rawURL, message)
	if err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

// AddURL queues a listing URL for crawling. It returns false when the URL
// is already known, whatever its status. The URL is stored in the form
// returned by model.ListingURL, the one the crawl engine reports status under.
func (s *Store) AddURL(ctx context.Context, rawURL string) (bool, error) {
	rawURL = model.ListingURL(rawURL)
	res, err := s.exec(ctx, `
		INSERT INTO crawled_urls (url, status)
		VALUES (?, ?)
		ON CONFLICT (url) DO NOTHING
	`, rawURL, model.CrawlStatusPending.String())
	if err != nil {
		return false, fmt.Errorf("failed to add URL: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteURL removes a listing URL and its error record.
// It returns ErrNotFound when the URL is not in crawled_urls.
func (s *Store) DeleteURL(ctx context.Context, rawURL string) error {
	rawURL = model.ListingURL(rawURL)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM crawled_urls WHERE url = ?`), rawURL)
	if err != nil {
		return fmt.Errorf("failed to delete URL: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM error_urls WHERE url = ?`), rawURL); err != nil {
		return fmt.Errorf("failed to delete error record: %w", err)
	}
	return tx.Commit()
}

// CrawledURLs lists known listing URLs, most recently updated first.
// An empty status lists every URL.
func (s *Store) CrawledURLs(ctx context.Context, status model.CrawlStatus) ([]model.CrawlTarget, error) {
	query := `
		SELECT url, status, message, crawled_at, updated_at
		FROM crawled_urls
		WHERE 1=1
	`
	var args []any
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		query += " AND status = ?"
		args = append(args, status.String())
	}
	query += " ORDER BY updated_at DESC, id DESC"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawled URLs: %w", err)
	}
	defer rows.Close()

	targets := make([]model.CrawlTarget, 0)
	for rows.Next() {
		var (
			t          model.CrawlTarget
			statusText string
			crawledAt  sql.NullString
			updatedAt  sql.NullString
		)
		if err := rows.Scan(&t.URL, &statusText, &t.Message, &crawledAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan crawled URL: %w", err)
		}
		t.Status = model.CrawlStatus(statusText)
		t.CrawledAt = parseNullTimestamp(crawledAt)
		if updatedAt.Valid {
			t.UpdatedAt = parseTimestamp(updatedAt.String)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// PendingURLs returns up to limit queued URLs, oldest first.
// A limit of zero or less returns every pending URL.
func (s *Store) PendingURLs(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT url FROM crawled_urls WHERE status = ? ORDER BY id`
	args := []any{model.CrawlStatusPending.String()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan pending URL: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// ErrorURLs returns failed listing URLs with the most attempts first.
func (s *Store) ErrorURLs(ctx context.Context, limit int) ([]model.ErrorURL, error) {
	query := `SELECT url, error_message, attempts FROM error_urls ORDER BY attempts DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list error URLs: %w", err)
	}
	defer rows.Close()

	result := make([]model.ErrorURL, 0)
	for rows.Next() {
		var e model.ErrorURL
		if err := rows.Scan(&e.URL, &e.Message, &e.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan error URL: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
