package database

import (
	"context"
	"fmt"

	"github.com/nao1215/opendir/internal/model"
)

// Stats returns aggregate counts over links, crawl statuses and errors.
func (s *Store) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{
		LinksByType:  make(map[model.FileType]int),
		URLsByStatus: make(map[model.CrawlStatus]int),
	}

	err := s.countGrouped(ctx, `SELECT type, COUNT(*) FROM links GROUP BY type`, func(key string, n int) {
		stats.LinksByType[model.FileType(key)] = n
		stats.TotalLinks += n
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	err = s.countGrouped(ctx, `SELECT status, COUNT(*) FROM crawled_urls GROUP BY status`, func(key string, n int) {
		stats.URLsByStatus[model.CrawlStatus(key)] = n
		stats.TotalCrawledURLs += n
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count crawled URLs: %w", err)
	}

	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM error_urls`).Scan(&stats.ErrorURLs); err != nil {
		return nil, fmt.Errorf("failed to count error URLs: %w", err)
	}
	return stats, nil
}

func (s *Store) countGrouped(ctx context.Context, query string, fn func(key string, n int)) error {
	rows, err := s.query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		fn(key, n)
	}
	return rows.Err()
}
