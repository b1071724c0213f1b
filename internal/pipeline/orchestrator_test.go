package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/generator"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/notify"
	"git.home.luguber.info/inful/blogsmith/internal/publisher"
	"git.home.luguber.info/inful/blogsmith/internal/queue"
	"git.home.luguber.info/inful/blogsmith/internal/renderer"
	"git.home.luguber.info/inful/blogsmith/internal/store"
)

type fakeGenerator struct {
	topicErr error
	draftErr error
	topic    string
	body     string
}

func (f *fakeGenerator) GenerateTopic(_ context.Context, _ generator.BlogContext) (string, generator.Usage, error) {
	if f.topicErr != nil {
		return "", generator.Usage{}, f.topicErr
	}
	return f.topic, generator.Usage{InputTokens: 100, OutputTokens: 10}, nil
}

func (f *fakeGenerator) GenerateDraft(_ context.Context, topic string, _ generator.BlogContext) (model.Draft, generator.Usage, error) {
	if f.draftErr != nil {
		return model.Draft{}, generator.Usage{}, f.draftErr
	}
	return model.Draft{
		Topic:   topic,
		Body:    f.body,
		Outline: []string{"Overview"},
		Images:  2,
		Locale:  "en",
	}, generator.Usage{InputTokens: 500, OutputTokens: 900}, nil
}

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

type fixture struct {
	store  *store.Store
	orch   *Orchestrator
	gen    *fakeGenerator
	pub    *fakePublisher
	sink   *recordingSink
	blogID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blogID, err := st.InsertBlog(context.Background(), &model.Blog{
		Name:      "Ops Notebook",
		URL:       "https://blog.example.com",
		Platform:  model.PlatformWordPress,
		Category:  "infrastructure",
		Active:    true,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	gen := &fakeGenerator{
		topic: "Testing backups the hard way",
		body:  "Regular restore drills catch what monitoring misses.",
	}
	pub := &fakePublisher{
		platform: model.PlatformWordPress,
		result:   &publisher.Result{PlatformID: "5", URL: "https://blog.example.com/p/5"},
	}
	sink := &recordingSink{}

	logger := slog.New(slog.DiscardHandler)
	q, err := queue.New(st, queue.NewPolicy(config.RetryBackoffFixed, time.Minute, time.Hour, 3), logger)
	require.NoError(t, err)

	orch := NewOrchestrator(Options{
		Store:     st,
		Generator: gen,
		Registry:  publisher.NewRegistry(pub),
		Queue:     q,
		Notifier:  sink,
		Logger:    logger,
		GeneratorConfig: config.GeneratorConfig{
			TopicModel: "claude-3-5-haiku-latest",
			DraftModel: "claude-sonnet-4-20250514",
		},
	})
	return &fixture{store: st, orch: orch, gen: gen, pub: pub, sink: sink, blogID: blogID}
}

func stageSequence(logs []model.ExecutionLogEntry) []string {
	steps := make([]string, len(logs))
	for i, l := range logs {
		steps[i] = l.Step
	}
	return steps
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t)

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "published", summary.Results[0].Status)
	assert.Equal(t, "https://blog.example.com/p/5", summary.Results[0].URL)

	articles, err := f.store.ArticlesForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, model.ArticlePublished, articles[0].Status)
	assert.Equal(t, "5", articles[0].PlatformPostID)
	assert.NotEmpty(t, articles[0].HTMLContent)

	logs, err := f.store.LogsForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		model.StepTopicGeneration,
		model.StepDraftWriting,
		model.StepRender,
		model.StepPublish,
	}, stageSequence(logs))
	for _, l := range logs {
		assert.Equal(t, model.OutcomeSuccess, l.Status, "step %s", l.Step)
	}

	published := f.sink.byType(notify.EventPublished)
	require.Len(t, published, 1)
	assert.Equal(t, "Ops Notebook", published[0].Blog)

	completed := f.sink.byType(notify.EventRunCompleted)
	require.Len(t, completed, 1)
	assert.Contains(t, completed[0].Message, "1/1 succeeded")
}

func TestRunGenerationFailureSkipsBlog(t *testing.T) {
	f := newFixture(t)
	f.gen.topicErr = errors.GenerationFailed("topic_generation", assert.AnError)

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "failed", summary.Results[0].Status)

	// No article, a single failed log row, no publish attempt.
	articles, err := f.store.ArticlesForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	assert.Empty(t, articles)

	logs, err := f.store.LogsForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.StepTopicGeneration, logs[0].Step)
	assert.Equal(t, model.OutcomeFailed, logs[0].Status)

	assert.Equal(t, 0, f.pub.calls)
	assert.Empty(t, f.sink.byType(notify.EventPublished))
	assert.Empty(t, f.sink.byType(notify.EventAbandoned))
}

func TestRunTransientPublishFailureEnqueues(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.PublishTransient("wordpress", assert.AnError)

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Queued)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, "queued", summary.Results[0].Status)

	articles, err := f.store.ArticlesForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, model.ArticleDraft, articles[0].Status)

	entries, err := f.store.QueueEntriesForArticle(context.Background(), articles[0].ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.QueuePending, entries[0].Status)
	assert.Equal(t, 0, entries[0].RetryCount)

	logs, err := f.store.LogsForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	assert.Equal(t, model.OutcomeRetry, logs[3].Status)
}

func TestRunPermanentPublishFailureFinalizes(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.PublishAuthRejected("wordpress", assert.AnError)

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "failed", summary.Results[0].Status)

	articles, err := f.store.ArticlesForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, model.ArticleFailed, articles[0].Status)
	assert.NotEmpty(t, articles[0].ErrorMessage)

	entries, err := f.store.QueueEntriesForArticle(context.Background(), articles[0].ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "permanent failure must not enqueue")

	abandoned := f.sink.byType(notify.EventAbandoned)
	require.Len(t, abandoned, 1)
}

func TestRunBlogFailuresAreIsolated(t *testing.T) {
	f := newFixture(t)

	// Second blog on a platform with no registered publisher fails; the
	// first still publishes.
	_, err := f.store.InsertBlog(context.Background(), &model.Blog{
		Name:      "Archive Blog",
		URL:       "https://other.example.com",
		Platform:  model.PlatformArchive,
		Active:    true,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "published", summary.Results[0].Status)
	assert.Equal(t, "failed", summary.Results[1].Status)
}

func TestRunSkipsInactiveBlogs(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.DeactivateBlog(context.Background(), f.blogID))

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, f.pub.calls)
}

func TestRunStopsNearDeadline(t *testing.T) {
	f := newFixture(t)
	f.orch.deadlineMargin = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "skipped", summary.Results[0].Status)
	assert.Equal(t, 0, f.pub.calls)
}

func TestRunThenDrainPublishes(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.PublishTransient("wordpress", assert.AnError)

	_, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	articles, err := f.store.ArticlesForBlog(context.Background(), f.blogID)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	// The platform recovers; force the entry due and drain.
	f.pub.err = nil
	entries, err := f.store.QueueEntriesForArticle(context.Background(), articles[0].ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entries[0].NextRetryAt = time.Now().Add(-time.Minute)
	require.NoError(t, f.store.UpdateQueueEntry(context.Background(), &entries[0]))

	logger := slog.New(slog.DiscardHandler)
	q, err := queue.New(f.store, queue.DefaultPolicy(), logger)
	require.NoError(t, err)
	d := queue.NewDrainer(f.store, q, publisher.NewRegistry(f.pub), f.sink, nil, logger)

	summary, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	reloaded, err := f.store.ArticleByID(context.Background(), articles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArticlePublished, reloaded.Status)
}

func TestSummaryResponse(t *testing.T) {
	ok := &Summary{Processed: 2, Succeeded: 1, Queued: 1, Results: []BlogResult{{Status: "published"}, {Status: "queued"}}}
	resp := ok.Response()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Body.Success)
	assert.Equal(t, 2, resp.Body.Processed)

	bad := &Summary{Processed: 1, Failed: 1, Results: []BlogResult{{Status: "failed"}}}
	resp = bad.Response()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.False(t, resp.Body.Success)
}
