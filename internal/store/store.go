// Package store implements sqlite persistence for blogs, articles, execution
// logs and the publishing queue. Every write is a single-statement transaction
// scoped to one stage outcome, so a crash between pipeline stages leaves the
// database in a resumable state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite database handle. A Store is acquired per invocation
// and closed on every exit path; it is never held across invocations.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the database at dbPath and ensures the schema.
// Use ":memory:" for an in-memory database in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blogs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		blog_name TEXT NOT NULL,
		blog_url TEXT NOT NULL,
		platform TEXT NOT NULL,
		wp_user TEXT NOT NULL DEFAULT '',
		wp_app_password TEXT NOT NULL DEFAULT '',
		feed_url TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		blog_id INTEGER NOT NULL REFERENCES blogs(id),
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		html_content TEXT NOT NULL,
		status TEXT NOT NULL,
		platform_post_id TEXT NOT NULL DEFAULT '',
		archive_locator TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		attempted_at INTEGER,
		published_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_articles_blog ON articles(blog_id);
	CREATE TABLE IF NOT EXISTS execution_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		blog_id INTEGER NOT NULL,
		step TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		duration_seconds REAL NOT NULL DEFAULT 0,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_logs_blog ON execution_logs(blog_id);
	CREATE INDEX IF NOT EXISTS idx_logs_created ON execution_logs(created_at);
	CREATE TABLE IF NOT EXISTS publishing_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(id),
		blog_id INTEGER NOT NULL REFERENCES blogs(id),
		priority INTEGER NOT NULL DEFAULT 100,
		retry_count INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		next_retry_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queue_due ON publishing_queue(status, next_retry_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// unix converts a time to the integer form stored in the database.
func unix(t time.Time) int64 { return t.UTC().Unix() }

// fromUnix converts a stored integer timestamp back to UTC time.
func fromUnix(v int64) time.Time { return time.Unix(v, 0).UTC() }

// nullableUnix maps optional times to sql NULLs.
func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return unix(*t)
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnix(v.Int64)
	return &t
}

// execRow runs a single-row write inside its own implicit transaction.
func (s *Store) execRow(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.ExecContext(ctx, query, args...)
}
