package queue

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/logfields"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/store"
)

// Queue applies the backoff policy on top of the persistent queue table.
// Entries move pending -> done on a successful retry, pending -> abandoned
// when attempts are exhausted or the failure is permanent. Abandoned entries
// are never revived.
type Queue struct {
	store  *store.Store
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

func New(st *store.Store, policy Policy, logger *slog.Logger) (*Queue, error) {
	if err := policy.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "invalid retry policy")
	}
	return &Queue{
		store:  st,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Policy returns the backoff policy the queue applies.
func (q *Queue) Policy() Policy {
	return q.policy
}

// Enqueue records a failed publish for later retry. The first retry becomes
// due after the policy's first delay.
func (q *Queue) Enqueue(ctx context.Context, articleID, blogID int64) (*model.QueueEntry, error) {
	now := q.now()
	entry := &model.QueueEntry{
		ArticleID:   articleID,
		BlogID:      blogID,
		Priority:    model.DefaultPriority,
		RetryCount:  0,
		MaxRetries:  q.policy.MaxRetries,
		Status:      model.QueuePending,
		NextRetryAt: now.Add(q.policy.Delay(1)),
		CreatedAt:   now,
	}

	id, err := q.store.InsertQueueEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id

	q.logger.Info("publish queued for retry",
		logfields.EntryID(id),
		logfields.ArticleID(articleID),
		logfields.BlogID(blogID),
		slog.Time("next_retry_at", entry.NextRetryAt))
	return entry, nil
}

// Due returns the pending entries whose retry time has arrived, ordered by
// priority then age.
func (q *Queue) Due(ctx context.Context) ([]model.QueueEntry, error) {
	return q.store.DueQueueEntries(ctx, q.now())
}

// RecordAttempt transitions an entry after a retry attempt. A nil attemptErr
// marks the entry done. A permanent error abandons it immediately. A
// retryable error increments the count and either schedules the next attempt
// or abandons the entry when attempts are exhausted. The resulting status is
// returned.
func (q *Queue) RecordAttempt(ctx context.Context, entry *model.QueueEntry, attemptErr error) (model.QueueStatus, error) {
	switch {
	case attemptErr == nil:
		entry.Status = model.QueueDone

	case !errors.IsRetryable(attemptErr):
		entry.Status = model.QueueAbandoned
		q.logger.Warn("retry abandoned on permanent failure",
			logfields.EntryID(entry.ID),
			logfields.ArticleID(entry.ArticleID),
			logfields.Error(attemptErr))

	default:
		entry.RetryCount++
		if entry.RetryCount >= entry.MaxRetries {
			entry.Status = model.QueueAbandoned
			q.logger.Warn("retry attempts exhausted",
				logfields.EntryID(entry.ID),
				logfields.ArticleID(entry.ArticleID),
				logfields.RetryCount(entry.RetryCount))
		} else {
			entry.NextRetryAt = q.now().Add(q.policy.Delay(entry.RetryCount + 1))
			q.logger.Info("retry rescheduled",
				logfields.EntryID(entry.ID),
				logfields.RetryCount(entry.RetryCount),
				slog.Time("next_retry_at", entry.NextRetryAt))
		}
	}

	if err := q.store.UpdateQueueEntry(ctx, entry); err != nil {
		return entry.Status, err
	}
	return entry.Status, nil
}
