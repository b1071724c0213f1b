package store

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/model"
)

// AppendLog writes one execution log row. The table is append-only: there are
// no update or delete paths, making it the system of record for cost audits.
func (s *Store) AppendLog(ctx context.Context, e *model.ExecutionLogEntry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.execRow(ctx,
		`INSERT INTO execution_logs (blog_id, step, status, message, duration_seconds, tokens_used, cost, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BlogID, e.Step, string(e.Status), truncateMessage(e.Message),
		e.Duration.Seconds(), e.TokensUsed, e.Cost, unix(created),
	)
	if err != nil {
		return fmt.Errorf("append execution log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append execution log id: %w", err)
	}
	e.ID = id
	return nil
}

// LogsForBlog returns a blog's execution log rows in insertion order.
func (s *Store) LogsForBlog(ctx context.Context, blogID int64) ([]model.ExecutionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, blog_id, step, status, message, duration_seconds, tokens_used, cost, created_at
		 FROM execution_logs WHERE blog_id = ? ORDER BY id`, blogID)
	if err != nil {
		return nil, fmt.Errorf("query execution logs: %w", err)
	}
	defer rows.Close()

	var entries []model.ExecutionLogEntry
	for rows.Next() {
		var e model.ExecutionLogEntry
		var status string
		var durationSec float64
		var created int64
		if err := rows.Scan(&e.ID, &e.BlogID, &e.Step, &status, &e.Message, &durationSec, &e.TokensUsed, &e.Cost, &created); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		e.Status = model.StepOutcome(status)
		e.Duration = time.Duration(durationSec * float64(time.Second))
		e.CreatedAt = fromUnix(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats is a cost-accounting rollup over execution logs.
type Stats struct {
	TotalCost    float64
	TotalTokens  int64
	SuccessSteps int64
	FailedSteps  int64
	RetrySteps   int64
}

// StatsSince aggregates execution logs recorded at or after the given time.
func (s *Store) StatsSince(ctx context.Context, since time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(tokens_used), 0),
		        COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'retry' THEN 1 ELSE 0 END), 0)
		 FROM execution_logs WHERE created_at >= ?`, unix(since))

	var st Stats
	if err := row.Scan(&st.TotalCost, &st.TotalTokens, &st.SuccessSteps, &st.FailedSteps, &st.RetrySteps); err != nil {
		return nil, fmt.Errorf("stats rollup: %w", err)
	}
	return &st, nil
}
