package queue

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/logfields"
	"git.home.luguber.info/inful/blogsmith/internal/metrics"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/notify"
	"git.home.luguber.info/inful/blogsmith/internal/publisher"
	"git.home.luguber.info/inful/blogsmith/internal/renderer"
	"git.home.luguber.info/inful/blogsmith/internal/store"
)

// DrainSummary reports what a single drain pass did.
type DrainSummary struct {
	Attempted   int
	Succeeded   int
	Rescheduled int
	Abandoned   int
}

// Drainer retries due queue entries. Each pass takes one snapshot of due
// entries and makes at most one publish attempt per entry; entries that
// become due during the pass wait for the next one.
type Drainer struct {
	store    *store.Store
	queue    *Queue
	registry *publisher.Registry
	notifier notify.Sink
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewDrainer(st *store.Store, q *Queue, registry *publisher.Registry, notifier notify.Sink, recorder metrics.Recorder, logger *slog.Logger) *Drainer {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Drainer{
		store:    st,
		queue:    q,
		registry: registry,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Drain processes every entry due at the start of the pass. Per-entry
// failures do not stop the pass.
func (d *Drainer) Drain(ctx context.Context) (*DrainSummary, error) {
	due, err := d.queue.Due(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DrainSummary{}
	for i := range due {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Attempted++
		switch d.drainOne(ctx, &due[i]) {
		case model.QueueDone:
			summary.Succeeded++
		case model.QueueAbandoned:
			summary.Abandoned++
		default:
			summary.Rescheduled++
		}
	}

	if pending, err := d.store.DueQueueEntries(ctx, d.now().Add(365*24*time.Hour)); err == nil {
		d.recorder.SetQueueDepth(len(pending))
	}
	return summary, nil
}

// drainOne makes one publish attempt for the entry and returns the entry's
// resulting status.
func (d *Drainer) drainOne(ctx context.Context, entry *model.QueueEntry) model.QueueStatus {
	start := d.now()
	attemptErr := d.attempt(ctx, entry)

	status, err := d.queue.RecordAttempt(ctx, entry, attemptErr)
	if err != nil {
		d.logger.Error("queue update failed", logfields.EntryID(entry.ID), logfields.Error(err))
		return entry.Status
	}

	outcome := model.OutcomeSuccess
	message := ""
	if attemptErr != nil {
		message = attemptErr.Error()
		outcome = model.OutcomeRetry
		if status == model.QueueAbandoned {
			outcome = model.OutcomeFailed
		}
	}
	logErr := d.store.AppendLog(ctx, &model.ExecutionLogEntry{
		BlogID:    entry.BlogID,
		Step:      model.StepRetryPublish,
		Status:    outcome,
		Message:   message,
		Duration:  d.now().Sub(start),
		CreatedAt: d.now(),
	})
	if logErr != nil {
		d.logger.Error("execution log append failed", logfields.EntryID(entry.ID), logfields.Error(logErr))
	}

	platform := "unknown"
	if blog, err := d.store.BlogByID(ctx, entry.BlogID); err == nil {
		platform = string(blog.Platform)
	}
	d.recorder.IncStageResult(model.StepRetryPublish, metrics.ResultLabel(outcome))
	d.recorder.IncPublishRetry(platform)

	if status == model.QueueAbandoned {
		d.recorder.IncRetryExhausted(platform)
		d.abandonArticle(ctx, entry, attemptErr)
	}
	return status
}

// attempt re-publishes the entry's article from its stored rendered HTML.
// Content is never regenerated on retry.
func (d *Drainer) attempt(ctx context.Context, entry *model.QueueEntry) error {
	article, err := d.store.ArticleByID(ctx, entry.ArticleID)
	if err != nil {
		return errors.StorageError("load article for retry", err)
	}
	if article.Status == model.ArticlePublished {
		// Published through another path; nothing left to do.
		return nil
	}

	blog, err := d.store.BlogByID(ctx, entry.BlogID)
	if err != nil {
		return errors.StorageError("load blog for retry", err)
	}
	if !blog.Active {
		return errors.New(errors.CategoryValidation, errors.SeverityWarning, "blog deactivated while queued").
			WithContext("blog", blog.Name)
	}

	pub, err := d.registry.For(blog.Platform)
	if err != nil {
		return err
	}

	doc := &renderer.Document{
		HTML: article.HTMLContent,
		Meta: renderer.Meta{
			Title: article.Title,
			Slug:  renderer.Slugify(article.Title),
		},
	}

	if err := d.store.TouchArticleAttempt(ctx, article.ID, d.now()); err != nil {
		d.logger.Warn("attempt timestamp update failed", logfields.ArticleID(article.ID), logfields.Error(err))
	}

	result, err := pub.Publish(ctx, *blog, doc)
	if err != nil {
		return err
	}

	if err := d.store.MarkArticlePublished(ctx, article.ID, result.PlatformID, result.Locator, d.now()); err != nil {
		return errors.StorageError("mark article published", err)
	}

	d.logger.Info("queued article published",
		logfields.EntryID(entry.ID),
		logfields.ArticleID(article.ID),
		logfields.BlogID(blog.ID),
		logfields.RetryCount(entry.RetryCount),
		logfields.URL(result.URL))

	d.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventPublished,
		Blog:      blog.Name,
		Title:     article.Title,
		URL:       result.URL,
		Message:   "published after retry",
		Timestamp: d.now(),
	})
	return nil
}

// abandonArticle finalizes an article whose retries are exhausted or whose
// failure is permanent.
func (d *Drainer) abandonArticle(ctx context.Context, entry *model.QueueEntry, attemptErr error) {
	msg := "retries exhausted"
	if attemptErr != nil {
		msg = attemptErr.Error()
	}
	if err := d.store.MarkArticleFailed(ctx, entry.ArticleID, msg, d.now()); err != nil {
		d.logger.Error("mark article failed errored", logfields.ArticleID(entry.ArticleID), logfields.Error(err))
	}

	blogName := ""
	title := ""
	if blog, err := d.store.BlogByID(ctx, entry.BlogID); err == nil {
		blogName = blog.Name
	}
	if article, err := d.store.ArticleByID(ctx, entry.ArticleID); err == nil {
		title = article.Title
	}

	d.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventAbandoned,
		Blog:      blogName,
		Title:     title,
		Message:   msg,
		Timestamp: d.now(),
	})
}
