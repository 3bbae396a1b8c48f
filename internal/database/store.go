package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DefaultDBFile is the SQLite file name used when the URI names a directory.
	DefaultDBFile = "opendir.db"

	// DefaultSearchLimit is the number of search results when no limit is given.
	DefaultSearchLimit = 10

	// MaxSearchLimit caps the number of search results.
	MaxSearchLimit = 100

	// MemoryURI opens a private in-memory SQLite database.
	MemoryURI = "sqlite://:memory:"
)

// Store persists links, crawl statuses and error records.
// A Store is safe for concurrent use.
type Store struct {
	db       *sql.DB
	dialect  dialect
	location string
}

// Options configures database opening behavior.
type Options struct {
	// CreateIfNotExists creates the SQLite directory and file if missing.
	CreateIfNotExists bool

	// EnableWAL enables SQLite write-ahead logging.
	EnableWAL bool

	// MaxOpenConns caps PostgreSQL connections. Zero uses 10.
	MaxOpenConns int
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		MaxOpenConns:      10,
	}
}

// Open opens the store described by uri and creates missing tables.
//
// postgres:// and postgresql:// URIs select PostgreSQL. Anything else is a
// SQLite location: "sqlite://" followed by a path, or a bare path. A path
// ending in .db or .sqlite names the database file, any other path names
// the directory holding opendir.db.
func Open(ctx context.Context, uri string, opts Options) (*Store, error) {
	var (
		s   *Store
		err error
	)
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		s, err = openPostgres(ctx, uri, opts)
	default:
		s, err = openSQLite(ctx, strings.TrimPrefix(uri, "sqlite://"), opts)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func openSQLite(ctx context.Context, location string, opts Options) (*Store, error) {
	if location == "" {
		return nil, errors.New("database location is empty")
	}

	dsn := location
	if location != ":memory:" {
		dbPath := location
		ext := strings.ToLower(filepath.Ext(location))
		if ext != ".db" && ext != ".sqlite" {
			dbPath = filepath.Join(location, DefaultDBFile)
		}

		if opts.CreateIfNotExists {
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			dsn = dbPath + "?mode=rwc"
		} else {
			dsn = dbPath + "?mode=rw"
		}
		location = dbPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer. One connection serializes the crawl
	// workers instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(sqliteConnLifetime(location))

	if opts.EnableWAL && location != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return &Store{db: db, dialect: sqliteDialect, location: location}, nil
}

// sqliteConnLifetime returns the connection lifetime for a SQLite location.
// An in-memory database lives only as long as its connection, so that
// connection is never recycled.
func sqliteConnLifetime(location string) time.Duration {
	if location == ":memory:" {
		return 0
	}
	return time.Hour
}

func openPostgres(ctx context.Context, uri string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := opts.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", describePostgresError(err))
	}

	return &Store{db: db, dialect: postgresDialect, location: redactURI(uri)}, nil
}

// describePostgresError adds the SQLSTATE name to server errors.
func describePostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s): %w", pqErr.Message, pqErr.Code.Name(), err)
	}
	return err
}

// redactURI removes the password from a connection URI.
func redactURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	scheme := strings.Index(uri, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return uri
	}
	userinfo := uri[scheme+3 : at]
	if i := strings.Index(userinfo, ":"); i >= 0 {
		userinfo = userinfo[:i] + ":xxxxx"
	}
	return uri[:scheme+3] + userinfo + uri[at:]
}

// Backend returns the name of the SQL backend ("sqlite" or "postgres").
func (s *Store) Backend() string {
	return s.dialect.name
}

// Location returns the SQLite file path or the redacted PostgreSQL URI.
func (s *Store) Location() string {
	return s.location
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}
