package store

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/model"
)

const queueColumns = "id, article_id, blog_id, priority, retry_count, max_retries, status, next_retry_at, created_at"

// InsertQueueEntry persists a new publishing queue entry.
func (s *Store) InsertQueueEntry(ctx context.Context, e *model.QueueEntry) (int64, error) {
	if e.MaxRetries <= 0 {
		return 0, fmt.Errorf("queue entry needs max_retries > 0")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
		e.CreatedAt = created
	}
	res, err := s.execRow(ctx,
		`INSERT INTO publishing_queue (article_id, blog_id, priority, retry_count, max_retries, status, next_retry_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ArticleID, e.BlogID, e.Priority, e.RetryCount, e.MaxRetries, string(e.Status), unix(e.NextRetryAt), unix(created),
	)
	if err != nil {
		return 0, fmt.Errorf("insert queue entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert queue entry id: %w", err)
	}
	e.ID = id
	return id, nil
}

// DueQueueEntries returns pending entries whose next_retry_at is at or before
// now, ordered by priority (lower first) then age.
func (s *Store) DueQueueEntries(ctx context.Context, now time.Time) ([]model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+queueColumns+` FROM publishing_queue
		 WHERE status = ? AND next_retry_at <= ?
		 ORDER BY priority, created_at, id`,
		string(model.QueuePending), unix(now),
	)
	if err != nil {
		return nil, fmt.Errorf("query due queue entries: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// UpdateQueueEntry writes the mutable fields of an entry in one statement.
// The guard on abandoned keeps terminal entries terminal even if two drains
// ever race.
func (s *Store) UpdateQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	res, err := s.execRow(ctx,
		`UPDATE publishing_queue SET retry_count = ?, status = ?, next_retry_at = ?
		 WHERE id = ? AND status != ?`,
		e.RetryCount, string(e.Status), unix(e.NextRetryAt), e.ID, string(model.QueueAbandoned),
	)
	if err != nil {
		return fmt.Errorf("update queue entry: %w", err)
	}
	return requireRow(res, e.ID)
}

// QueueEntryByID fetches one queue entry.
func (s *Store) QueueEntryByID(ctx context.Context, id int64) (*model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, "SELECT "+queueColumns+" FROM publishing_queue WHERE id = ?", id)
	e, err := scanQueueEntry(row)
	if err != nil {
		return nil, fmt.Errorf("queue entry %d: %w", id, err)
	}
	return e, nil
}

// QueueEntriesForArticle lists queue entries tied to an article.
func (s *Store) QueueEntriesForArticle(ctx context.Context, articleID int64) ([]model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+queueColumns+" FROM publishing_queue WHERE article_id = ? ORDER BY id", articleID)
	if err != nil {
		return nil, fmt.Errorf("query queue entries: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanQueueEntry(r rowScanner) (*model.QueueEntry, error) {
	var e model.QueueEntry
	var status string
	var nextRetry, created int64
	if err := r.Scan(&e.ID, &e.ArticleID, &e.BlogID, &e.Priority, &e.RetryCount, &e.MaxRetries, &status, &nextRetry, &created); err != nil {
		return nil, err
	}
	e.Status = model.QueueStatus(status)
	e.NextRetryAt = fromUnix(nextRetry)
	e.CreatedAt = fromUnix(created)
	return &e, nil
}
