// Package pipeline runs the per-blog publishing pipeline: topic generation,
// draft writing, rendering, and publishing, with every stage outcome recorded
// in the execution log.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/generator"
	"git.home.luguber.info/inful/blogsmith/internal/logfields"
	"git.home.luguber.info/inful/blogsmith/internal/metrics"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/notify"
	"git.home.luguber.info/inful/blogsmith/internal/publisher"
	"git.home.luguber.info/inful/blogsmith/internal/queue"
	"git.home.luguber.info/inful/blogsmith/internal/renderer"
	"git.home.luguber.info/inful/blogsmith/internal/store"
)

// FeedSource supplies recent post titles for the topic repeat guard.
type FeedSource interface {
	RecentTitles(ctx context.Context, feedURL string) ([]string, error)
}

// BlogResult is the per-blog outcome of a run.
type BlogResult struct {
	BlogID   int64  `json:"blog_id"`
	BlogName string `json:"blog_name"`
	Status   string `json:"status"` // published|queued|failed|skipped
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Summary aggregates one pipeline run.
type Summary struct {
	RunID     string       `json:"run_id"`
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Queued    int          `json:"queued"`
	Failed    int          `json:"failed"`
	Results   []BlogResult `json:"results"`
}

// Orchestrator drives the pipeline across all active blogs. Blog failures
// are isolated: one blog failing never stops the others.
type Orchestrator struct {
	store    *store.Store
	gen      generator.Generator
	feeds    FeedSource
	registry *publisher.Registry
	queue    *queue.Queue
	notifier notify.Sink
	recorder metrics.Recorder
	logger   *slog.Logger

	genCfg         config.GeneratorConfig
	deadlineMargin time.Duration
	now            func() time.Time
}

// Options carries the orchestrator's collaborators.
type Options struct {
	Store     *store.Store
	Generator generator.Generator
	Feeds     FeedSource
	Registry  *publisher.Registry
	Queue     *queue.Queue
	Notifier  notify.Sink
	Recorder  metrics.Recorder
	Logger    *slog.Logger

	GeneratorConfig config.GeneratorConfig
	DeadlineMargin  time.Duration
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Feeds == nil {
		opts.Feeds = noFeeds{}
	}
	return &Orchestrator{
		store:          opts.Store,
		gen:            opts.Generator,
		feeds:          opts.Feeds,
		registry:       opts.Registry,
		queue:          opts.Queue,
		notifier:       opts.Notifier,
		recorder:       opts.Recorder,
		logger:         opts.Logger,
		genCfg:         opts.GeneratorConfig,
		deadlineMargin: opts.DeadlineMargin,
		now:            time.Now,
	}
}

type noFeeds struct{}

func (noFeeds) RecentTitles(context.Context, string) ([]string, error) { return nil, nil }

// Run processes every active blog in ascending id order and returns the
// aggregated summary. The error return covers run-level failures only, such
// as not being able to list blogs.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	runStart := o.now()

	blogs, err := o.store.ActiveBlogs(ctx)
	if err != nil {
		return nil, errors.StorageError("list active blogs", err)
	}

	summary := &Summary{RunID: uuid.NewString()}
	for i := range blogs {
		if o.outOfTime(ctx) {
			o.logger.Warn("stopping before deadline",
				logfields.BlogID(blogs[i].ID),
				slog.Int("remaining", len(blogs)-i))
			for _, blog := range blogs[i:] {
				summary.Results = append(summary.Results, BlogResult{
					BlogID:   blog.ID,
					BlogName: blog.Name,
					Status:   "skipped",
				})
			}
			break
		}

		result := o.runBlog(ctx, &blogs[i])
		summary.Processed++
		summary.Results = append(summary.Results, result)
		switch result.Status {
		case "published":
			summary.Succeeded++
		case "queued":
			summary.Queued++
		default:
			summary.Failed++
		}
	}

	o.recorder.ObserveRunDuration(o.now().Sub(runStart))
	outcome := "success"
	if summary.Failed > 0 {
		outcome = "partial"
	}
	if summary.Processed > 0 && summary.Succeeded == 0 && summary.Queued == 0 {
		outcome = "failed"
	}
	o.recorder.IncRunOutcome(outcome)

	o.logger.Info("pipeline run finished",
		slog.String("run_id", summary.RunID),
		slog.Int("processed", summary.Processed),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("queued", summary.Queued),
		slog.Int("failed", summary.Failed),
		logfields.DurationMS(float64(o.now().Sub(runStart).Milliseconds())))

	o.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventRunCompleted,
		Message:   runSummaryMessage(summary),
		Timestamp: o.now(),
	})
	return summary, nil
}

// runBlog executes the stage sequence for one blog. Each stage outcome is
// logged exactly once; the first failing stage ends the blog's run.
func (o *Orchestrator) runBlog(ctx context.Context, blog *model.Blog) BlogResult {
	result := BlogResult{BlogID: blog.ID, BlogName: blog.Name}
	log := o.logger.With(logfields.BlogID(blog.ID), logfields.BlogName(blog.Name))

	bc := generator.BlogContext{
		BlogName: blog.Name,
		Category: blog.Category,
		Locale:   "en",
	}
	if blog.FeedURL != "" {
		if titles, err := o.feeds.RecentTitles(ctx, blog.FeedURL); err == nil {
			bc.RecentTitles = titles
		} else {
			log.Debug("recent-title guard skipped", logfields.Error(err))
		}
	}

	// Stage: topic generation.
	stageStart := o.now()
	topic, topicUsage, err := o.gen.GenerateTopic(ctx, bc)
	topicCost := generator.Cost(o.genCfg.TopicModel, topicUsage)
	if err != nil {
		o.logStage(ctx, blog.ID, model.StepTopicGeneration, model.OutcomeFailed, err.Error(), stageStart, topicUsage.Total(), topicCost)
		log.Error("topic generation failed", logfields.Error(err))
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}
	o.logStage(ctx, blog.ID, model.StepTopicGeneration, model.OutcomeSuccess, topic, stageStart, topicUsage.Total(), topicCost)
	result.Title = topic

	// Stage: draft writing.
	stageStart = o.now()
	draft, draftUsage, err := o.gen.GenerateDraft(ctx, topic, bc)
	draftCost := generator.Cost(o.genCfg.DraftModel, draftUsage)
	if err != nil {
		o.logStage(ctx, blog.ID, model.StepDraftWriting, model.OutcomeFailed, err.Error(), stageStart, draftUsage.Total(), draftCost)
		log.Error("draft writing failed", logfields.Error(err))
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}
	o.logStage(ctx, blog.ID, model.StepDraftWriting, model.OutcomeSuccess, "", stageStart, draftUsage.Total(), draftCost)

	o.recorder.AddTokens(model.StepTopicGeneration, topicUsage.Total())
	o.recorder.AddCost(model.StepTopicGeneration, topicCost)
	o.recorder.AddTokens(model.StepDraftWriting, draftUsage.Total())
	o.recorder.AddCost(model.StepDraftWriting, draftCost)

	// Stage: render.
	stageStart = o.now()
	doc, err := renderer.Render(draft)
	if err != nil {
		o.logStage(ctx, blog.ID, model.StepRender, model.OutcomeFailed, err.Error(), stageStart, 0, 0)
		log.Error("render failed", logfields.Error(err))
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}
	o.logStage(ctx, blog.ID, model.StepRender, model.OutcomeSuccess, doc.Meta.Slug, stageStart, 0, 0)

	article := &model.Article{
		BlogID:      blog.ID,
		Title:       doc.Meta.Title,
		Content:     draft.Body,
		HTMLContent: doc.HTML,
		Status:      model.ArticleDraft,
		CreatedAt:   o.now(),
	}
	articleID, err := o.store.InsertArticle(ctx, article)
	if err != nil {
		log.Error("article insert failed", logfields.Error(err))
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}

	// Stage: publish.
	return o.publishStage(ctx, blog, article, articleID, doc, result, log)
}

// publishStage delivers the rendered document and settles the article's
// state. Retryable failures enqueue; permanent failures finalize.
func (o *Orchestrator) publishStage(ctx context.Context, blog *model.Blog, article *model.Article, articleID int64, doc *renderer.Document, result BlogResult, log *slog.Logger) BlogResult {
	stageStart := o.now()

	pub, err := o.registry.For(blog.Platform)
	if err != nil {
		o.logStage(ctx, blog.ID, model.StepPublish, model.OutcomeFailed, err.Error(), stageStart, 0, 0)
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}

	if err := o.store.TouchArticleAttempt(ctx, articleID, o.now()); err != nil {
		log.Warn("attempt timestamp update failed", logfields.Error(err))
	}

	pubResult, err := pub.Publish(ctx, *blog, doc)
	switch {
	case err == nil:
		if err := o.store.MarkArticlePublished(ctx, articleID, pubResult.PlatformID, pubResult.Locator, o.now()); err != nil {
			log.Error("mark published failed", logfields.Error(err))
		}
		o.logStage(ctx, blog.ID, model.StepPublish, model.OutcomeSuccess, pubResult.URL, stageStart, 0, 0)
		log.Info("article published",
			logfields.ArticleID(articleID),
			logfields.Platform(string(blog.Platform)),
			logfields.URL(pubResult.URL))

		o.notifier.Notify(ctx, notify.Event{
			Type:      notify.EventPublished,
			Blog:      blog.Name,
			Title:     article.Title,
			Slug:      doc.Meta.Slug,
			URL:       pubResult.URL,
			Timestamp: o.now(),
		})
		result.Status = "published"
		result.URL = pubResult.URL
		return result

	case errors.IsRetryable(err):
		entry, qErr := o.queue.Enqueue(ctx, articleID, blog.ID)
		if qErr != nil {
			log.Error("enqueue failed", logfields.Error(qErr))
			o.logStage(ctx, blog.ID, model.StepPublish, model.OutcomeFailed, err.Error(), stageStart, 0, 0)
			result.Status = "failed"
			result.Error = err.Error()
			return result
		}
		o.logStage(ctx, blog.ID, model.StepPublish, model.OutcomeRetry, err.Error(), stageStart, 0, 0)
		log.Warn("publish queued for retry",
			logfields.ArticleID(articleID),
			logfields.EntryID(entry.ID),
			logfields.Error(err))
		result.Status = "queued"
		result.Error = err.Error()
		return result

	default:
		if mErr := o.store.MarkArticleFailed(ctx, articleID, err.Error(), o.now()); mErr != nil {
			log.Error("mark failed errored", logfields.Error(mErr))
		}
		o.logStage(ctx, blog.ID, model.StepPublish, model.OutcomeFailed, err.Error(), stageStart, 0, 0)
		log.Error("publish rejected permanently", logfields.ArticleID(articleID), logfields.Error(err))

		o.notifier.Notify(ctx, notify.Event{
			Type:      notify.EventAbandoned,
			Blog:      blog.Name,
			Title:     article.Title,
			Message:   err.Error(),
			Timestamp: o.now(),
		})
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}
}

// logStage writes the single execution log row for a stage outcome and feeds
// the metrics recorder.
func (o *Orchestrator) logStage(ctx context.Context, blogID int64, step string, outcome model.StepOutcome, message string, start time.Time, tokens int, cost float64) {
	duration := o.now().Sub(start)
	err := o.store.AppendLog(ctx, &model.ExecutionLogEntry{
		BlogID:     blogID,
		Step:       step,
		Status:     outcome,
		Message:    message,
		Duration:   duration,
		TokensUsed: tokens,
		Cost:       cost,
		CreatedAt:  o.now(),
	})
	if err != nil {
		o.logger.Error("execution log append failed",
			logfields.BlogID(blogID),
			logfields.Stage(step),
			logfields.Error(err))
	}

	o.recorder.ObserveStageDuration(step, duration)
	o.recorder.IncStageResult(step, metrics.ResultLabel(outcome))
}

// outOfTime reports whether the context deadline is too close to start
// another blog.
func (o *Orchestrator) outOfTime(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	deadline, ok := ctx.Deadline()
	if !ok || o.deadlineMargin <= 0 {
		return false
	}
	return time.Until(deadline) < o.deadlineMargin
}
