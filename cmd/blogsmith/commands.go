package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/daemon"
	"git.home.luguber.info/inful/blogsmith/internal/metrics"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/pipeline"
	"git.home.luguber.info/inful/blogsmith/internal/queue"
)

func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, drainAfter bool) error {
	a, err := buildApp(cfg, logger, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	if drainAfter {
		if _, err := a.drainer.Drain(ctx); err != nil {
			logger.Error("drain after run failed", slog.Any("error", err))
		}
	}

	resp := summary.Response()
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if resp.StatusCode != 200 {
		return fmt.Errorf("%d of %d blogs failed", summary.Failed, summary.Processed)
	}
	return nil
}

func runDrain(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(cfg, logger, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.drainer.Drain(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("attempted=%d succeeded=%d rescheduled=%d abandoned=%d\n",
		summary.Attempted, summary.Succeeded, summary.Rescheduled, summary.Abandoned)
	return nil
}

// liveApp delegates to the current app and supports swapping it out when the
// configuration file changes while the daemon is running.
type liveApp struct {
	mu sync.RWMutex
	a  *app
}

func (l *liveApp) current() *app {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.a
}

func (l *liveApp) Run(ctx context.Context) (*pipeline.Summary, error) {
	return l.current().orchestrator.Run(ctx)
}

func (l *liveApp) Drain(ctx context.Context) (*queue.DrainSummary, error) {
	return l.current().drainer.Drain(ctx)
}

func (l *liveApp) reload(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) error {
	next, err := buildApp(cfg, logger, recorder)
	if err != nil {
		return err
	}
	l.mu.Lock()
	prev := l.a
	l.a = next
	l.mu.Unlock()
	prev.Close()
	return nil
}

func (l *liveApp) Close() {
	l.current().Close()
}

func runDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	a, err := buildApp(cfg, logger, recorder)
	if err != nil {
		return err
	}
	live := &liveApp{a: a}
	defer live.Close()

	d, err := daemon.New(daemon.Options{
		Config:         cfg.Daemon,
		Runner:         live,
		Drainer:        live,
		Logger:         logger,
		MetricsHandler: metrics.HTTPHandler(reg),
		ConfigPath:     CLI.Config,
		OnReload: func(_ context.Context, newCfg *config.Config) error {
			return live.reload(newCfg, logger, recorder)
		},
	})
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	return d.Wait(ctx)
}

func runGC(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(cfg, logger, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := collectGarbage(ctx, a)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d unreferenced archive objects\n", removed)
	return nil
}

// collectGarbage deletes archive objects whose hash no article references.
// The article table is the only liveness registry, so entries written by
// deactivated blogs stay retrievable as long as the article rows exist.
func collectGarbage(ctx context.Context, a *app) (int, error) {
	if a.fsStore == nil {
		return 0, fmt.Errorf("archive storage is not configured")
	}

	locators, err := a.store.ArchiveLocators(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]bool, len(locators))
	for _, locator := range locators {
		referenced[locator] = true
	}
	return a.fsStore.GC(ctx, referenced)
}

const configTemplate = `database:
  path: blogsmith.db

generator:
  api_key: ${ANTHROPIC_API_KEY}
  topic_model: claude-3-5-haiku-latest
  draft_model: claude-sonnet-4-20250514
  cost_ceiling_usd: 5.0

publish:
  timeout: 30s
  deadline_margin: 45s
  max_retries: 3

retry:
  backoff: exponential
  initial: 5m
  max: 6h

archive:
  dir: .blogsmith/archives
  base_url: https://archive.example.com
  url_ttl: 15m
  signing_secret: ${ARCHIVE_SIGNING_SECRET}

notify:
  webhook_urls: []

daemon:
  run_interval: 24h
  drain_interval: 15m
  metrics_addr: :9091
`

func runInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runBlogAdd(ctx context.Context, cfg *config.Config) error {
	platform := model.Platform(CLI.Blog.Add.Platform)
	if !platform.Valid() {
		return fmt.Errorf("unknown platform %q (expected wordpress or archive)", CLI.Blog.Add.Platform)
	}

	a, err := buildApp(cfg, slog.Default(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.store.InsertBlog(ctx, &model.Blog{
		Name:          CLI.Blog.Add.Name,
		URL:           CLI.Blog.Add.URL,
		Platform:      platform,
		WPUser:        CLI.Blog.Add.WPUser,
		WPAppPassword: CLI.Blog.Add.WPAppPassword,
		FeedURL:       CLI.Blog.Add.FeedURL,
		Category:      CLI.Blog.Add.Category,
		Active:        true,
	})
	if err != nil {
		return err
	}
	fmt.Printf("blog %d registered\n", id)
	return nil
}

func runBlogList(ctx context.Context, cfg *config.Config) error {
	a, err := buildApp(cfg, slog.Default(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	blogs, err := a.store.AllBlogs(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPLATFORM\tURL\tACTIVE")
	for _, b := range blogs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", b.ID, b.Name, b.Platform, b.URL, b.Active)
	}
	return w.Flush()
}

func runBlogDeactivate(ctx context.Context, cfg *config.Config, id int64) error {
	a, err := buildApp(cfg, slog.Default(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeactivateBlog(ctx, id); err != nil {
		return err
	}
	fmt.Printf("blog %d deactivated\n", id)
	return nil
}

func runBlogRotate(ctx context.Context, cfg *config.Config, id int64) error {
	a, err := buildApp(cfg, slog.Default(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.RotateCredentials(ctx, id, CLI.Blog.RotateCredentials.WPUser, CLI.Blog.RotateCredentials.WPAppPassword); err != nil {
		return err
	}
	fmt.Printf("credentials rotated for blog %d\n", id)
	return nil
}

func runStats(ctx context.Context, cfg *config.Config, since string) error {
	window, err := time.ParseDuration(since)
	if err != nil {
		return fmt.Errorf("invalid --since duration: %w", err)
	}

	a, err := buildApp(cfg, slog.Default(), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store.StatsSince(ctx, time.Now().Add(-window))
	if err != nil {
		return err
	}
	fmt.Printf("window: last %s\n", window)
	fmt.Printf("cost: $%.4f\n", st.TotalCost)
	fmt.Printf("tokens: %d\n", st.TotalTokens)
	fmt.Printf("steps: %d success, %d failed, %d retry\n", st.SuccessSteps, st.FailedSteps, st.RetrySteps)
	return nil
}
