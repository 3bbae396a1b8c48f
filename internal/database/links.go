package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/opendir/internal/model"
)

// UpsertLinks inserts links whose URL is not stored yet and returns the
// number of new rows. Existing URLs are left untouched, so writing the same
// link twice keeps a single row. The whole batch runs in one transaction
// and is rejected with ErrInvalidLink if any link has an empty URL or a
// non-storable category.
func (s *Store) UpsertLinks(ctx context.Context, links []model.DiscoveredLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	for _, link := range links {
		if link.URL == "" {
			return 0, fmt.Errorf("%w: empty URL", ErrInvalidLink)
		}
		if !link.Category.IsStorable() {
			return 0, fmt.Errorf("%w: %s has category %q", ErrInvalidLink, link.URL, link.Category)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
		INSERT INTO links (name, url, type, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, link := range links {
		res, err := stmt.ExecContext(ctx, link.Name, link.URL, link.Category.String(), link.Source)
		if err != nil {
			return 0, fmt.Errorf("failed to insert link %s: %w", link.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit links: %w", err)
	}
	return inserted, nil
}

// GetLink returns the stored link with the given URL.
func (s *Store) GetLink(ctx context.Context, rawURL string) (*model.StoredLink, error) {
	var (
		link      model.StoredLink
		category  string
		createdAt string
	)
	err := s.queryRow(ctx, `
		SELECT id, name, url, type, source, created_at
		FROM links WHERE url = ?
	`, rawURL).Scan(&link.ID, &link.Name, &link.URL, &category, &link.Source, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	link.Category = model.FileType(category)
	link.CreatedAt = parseTimestamp(createdAt)
	return &link, nil
}

// Search returns links whose name or URL contains q.Query, ignoring case,
// optionally filtered by category. Results are ordered by insertion.
func (s *Store) Search(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error) {
	term := strings.TrimSpace(q.Query)
	if isWildcardOnly(term) {
		return nil, ErrEmptyQuery
	}

	query := fmt.Sprintf(`
		SELECT id, name, url, type
		FROM links
		WHERE (%[1]s(name) LIKE ? ESCAPE '\' OR %[1]s(url) LIKE ? ESCAPE '\')
	`, s.dialect.lower)
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	args := []any{pattern, pattern}

	category := strings.TrimSpace(q.Category)
	if category != "" && !strings.EqualFold(category, model.CategoryAll) {
		ft, ok := model.ParseFileType(category)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		query += " AND type = ?"
		args = append(args, ft.String())
	}

	query += " ORDER BY id LIMIT ?"
	args = append(args, clampLimit(q.Limit))

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search links: %w", err)
	}
	defer rows.Close()

	results := make([]model.SearchResult, 0)
	for rows.Next() {
		var (
			r   model.SearchResult
			typ string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.URL, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Category = model.FileType(typ)
		results = append(results, r)
	}
	return results, rows.Err()
}

// wildcardRunes are characters that carry no search meaning on their own.
const wildcardRunes = "*%_.?+"

// isWildcardOnly reports whether term is empty or made only of wildcard
// characters and whitespace. Such queries would match every link.
func isWildcardOnly(term string) bool {
	for _, r := range term {
		if !strings.ContainsRune(wildcardRunes, r) && r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

// escapeLike escapes LIKE metacharacters so the term matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// clampLimit applies the default and maximum search limits.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}
