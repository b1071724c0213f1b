package queue

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/metrics"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/notify"
	"git.home.luguber.info/inful/blogsmith/internal/publisher"
	"git.home.luguber.info/inful/blogsmith/internal/renderer"
	"git.home.luguber.info/inful/blogsmith/internal/store"
)

type fakePublisher struct {
	mu       sync.Mutex
	platform model.Platform
	err      error
	result   *publisher.Result
	calls    int
}

func (f *fakePublisher) Platform() model.Platform { return f.platform }

func (f *fakePublisher) Publish(_ context.Context, _ model.Blog, _ *renderer.Document) (*publisher.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingSink) Notify(_ context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) byType(et notify.EventType) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, e := range r.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

type drainFixture struct {
	store   *store.Store
	queue   *Queue
	drainer *Drainer
	pub     *fakePublisher
	sink    *recordingSink
	blogID  int64
	article int64
}

func newDrainFixture(t *testing.T, maxRetries int, pubErr error) *drainFixture {
	t.Helper()
	policy := NewPolicy(config.RetryBackoffFixed, time.Minute, time.Hour, maxRetries)
	q, st := newTestQueue(t, policy)
	blogID, articleID := seedArticle(t, st)

	pub := &fakePublisher{
		platform: model.PlatformWordPress,
		err:      pubErr,
		result:   &publisher.Result{PlatformID: "9", URL: "https://blog.example.com/p/9"},
	}
	sink := &recordingSink{}
	d := NewDrainer(st, q, publisher.NewRegistry(pub), sink, metrics.NoopRecorder{}, slog.New(slog.DiscardHandler))

	return &drainFixture{store: st, queue: q, drainer: d, pub: pub, sink: sink, blogID: blogID, article: articleID}
}

func (f *drainFixture) enqueueDue(t *testing.T) *model.QueueEntry {
	t.Helper()
	entry := &model.QueueEntry{
		ArticleID:   f.article,
		BlogID:      f.blogID,
		Priority:    model.DefaultPriority,
		MaxRetries:  f.queue.Policy().MaxRetries,
		Status:      model.QueuePending,
		NextRetryAt: time.Now().Add(-time.Minute),
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	_, err := f.store.InsertQueueEntry(context.Background(), entry)
	require.NoError(t, err)
	return entry
}

func TestDrainPublishesQueuedArticle(t *testing.T) {
	f := newDrainFixture(t, 3, nil)
	entry := f.enqueueDue(t)

	summary, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)

	reloaded, err := f.store.QueueEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueDone, reloaded.Status)

	article, err := f.store.ArticleByID(context.Background(), f.article)
	require.NoError(t, err)
	assert.Equal(t, model.ArticlePublished, article.Status)
	assert.Equal(t, "9", article.PlatformPostID)

	published := f.sink.byType(notify.EventPublished)
	require.Len(t, published, 1)
	assert.Equal(t, "Ops Notebook", published[0].Blog)

	logs, err := f.store.LogsForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.StepRetryPublish, logs[0].Step)
	assert.Equal(t, model.OutcomeSuccess, logs[0].Status)
}

func TestDrainReschedulesOnTransientFailure(t *testing.T) {
	f := newDrainFixture(t, 3, errors.PublishTransient("wordpress", assert.AnError))
	entry := f.enqueueDue(t)

	summary, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rescheduled)

	reloaded, err := f.store.QueueEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueuePending, reloaded.Status)
	assert.Equal(t, 1, reloaded.RetryCount)
	assert.True(t, reloaded.NextRetryAt.After(time.Now()))

	logs, err := f.store.LogsForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.OutcomeRetry, logs[0].Status)
}

func TestDrainSingleAttemptPerPass(t *testing.T) {
	f := newDrainFixture(t, 5, errors.PublishTransient("wordpress", assert.AnError))
	f.enqueueDue(t)

	_, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.pub.calls)

	// The entry was rescheduled into the future; an immediate second pass
	// must not touch it.
	summary, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 1, f.pub.calls)
}

func TestDrainAbandonsAfterExhaustion(t *testing.T) {
	f := newDrainFixture(t, 1, errors.PublishTransient("wordpress", assert.AnError))
	entry := f.enqueueDue(t)

	summary, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Abandoned)

	reloaded, err := f.store.QueueEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueAbandoned, reloaded.Status)

	article, err := f.store.ArticleByID(context.Background(), f.article)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleFailed, article.Status)
	assert.NotEmpty(t, article.ErrorMessage)

	abandoned := f.sink.byType(notify.EventAbandoned)
	require.Len(t, abandoned, 1)
	assert.Equal(t, "Ops Notebook", abandoned[0].Blog)

	logs, err := f.store.LogsForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.OutcomeFailed, logs[0].Status)
}

func TestDrainPermanentFailureAbandonsImmediately(t *testing.T) {
	f := newDrainFixture(t, 5, errors.PublishAuthRejected("wordpress", assert.AnError))
	entry := f.enqueueDue(t)

	summary, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Abandoned)
	assert.Equal(t, 1, f.pub.calls)

	reloaded, err := f.store.QueueEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueAbandoned, reloaded.Status)
	assert.Equal(t, 0, reloaded.RetryCount)
}

func TestDrainSkipsAlreadyPublishedArticle(t *testing.T) {
	f := newDrainFixture(t, 3, errors.PublishTransient("wordpress", assert.AnError))
	entry := f.enqueueDue(t)

	require.NoError(t, f.store.MarkArticlePublished(context.Background(), f.article, "11", "", time.Now()))

	summary, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, f.pub.calls, "already published article must not be re-sent")

	reloaded, err := f.store.QueueEntryByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueDone, reloaded.Status)
}

func TestDrainDeactivatedBlogAbandons(t *testing.T) {
	f := newDrainFixture(t, 3, nil)
	f.enqueueDue(t)

	require.NoError(t, f.store.DeactivateBlog(context.Background(), f.blogID))

	summary, err := f.drainer.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Abandoned)
	assert.Equal(t, 0, f.pub.calls)
}
