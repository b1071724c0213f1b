// Package daemon runs the pipeline and retry drain on a schedule. It owns the
// gocron scheduler, the metrics endpoint, and the config file watcher.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/logfields"
	"git.home.luguber.info/inful/blogsmith/internal/pipeline"
	"git.home.luguber.info/inful/blogsmith/internal/queue"
)

// Runner executes one full pipeline pass over the active blogs.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
}

// Drainer retries due queue entries.
type Drainer interface {
	Drain(ctx context.Context) (*queue.DrainSummary, error)
}

// Daemon schedules periodic pipeline runs and queue drains until stopped.
type Daemon struct {
	cfg     config.DaemonConfig
	runner  Runner
	drainer Drainer
	logger  *slog.Logger

	scheduler *Scheduler
	watcher   *ConfigWatcher
	metricsLn *http.Server

	mu      sync.Mutex
	running bool
}

// Options wires the daemon's collaborators.
type Options struct {
	Config  config.DaemonConfig
	Runner  Runner
	Drainer Drainer
	Logger  *slog.Logger

	// MetricsHandler, when set together with Config.MetricsAddr, is served
	// on a small HTTP listener alongside the scheduler.
	MetricsHandler http.Handler

	// ConfigPath, when non-empty, is watched for changes; OnReload is
	// invoked after the debounce window.
	ConfigPath string
	OnReload   func(ctx context.Context, cfg *config.Config) error
}

// New creates a daemon. Runner and Drainer are required.
func New(opts Options) (*Daemon, error) {
	if opts.Runner == nil {
		return nil, errors.New("daemon requires a pipeline runner")
	}
	if opts.Drainer == nil {
		return nil, errors.New("daemon requires a queue drainer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		cfg:     opts.Config,
		runner:  opts.Runner,
		drainer: opts.Drainer,
		logger:  logger,
	}

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}
	d.scheduler = scheduler

	if opts.ConfigPath != "" && opts.OnReload != nil {
		watcher, err := NewConfigWatcher(opts.ConfigPath, opts.OnReload, logger)
		if err != nil {
			scheduler.Stop()
			return nil, err
		}
		d.watcher = watcher
	}

	if opts.Config.MetricsAddr != "" && opts.MetricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", opts.MetricsHandler)
		d.metricsLn = &http.Server{
			Addr:              opts.Config.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return d, nil
}

// Start schedules the periodic jobs and begins serving metrics. It returns
// once everything is running; use Stop for shutdown.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already started")
	}

	if err := d.scheduler.AddJob("pipeline-run", d.cfg.RunInterval, func() {
		d.runPipeline(ctx)
	}); err != nil {
		return err
	}
	if err := d.scheduler.AddJob("queue-drain", d.cfg.DrainInterval, func() {
		d.drainQueue(ctx)
	}); err != nil {
		return err
	}

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return err
		}
	}

	if d.metricsLn != nil {
		go func() {
			d.logger.Info("metrics listener starting", slog.String("addr", d.metricsLn.Addr))
			if err := d.metricsLn.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("metrics listener failed", logfields.Error(err))
			}
		}()
	}

	d.scheduler.Start()
	d.running = true
	d.logger.Info("daemon started",
		slog.Duration("run_interval", d.cfg.RunInterval),
		slog.Duration("drain_interval", d.cfg.DrainInterval))
	return nil
}

// Stop shuts the scheduler, watcher and metrics listener down.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false

	var firstErr error
	if err := d.scheduler.Stop(); err != nil {
		firstErr = err
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.metricsLn != nil {
		if err := d.metricsLn.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.logger.Info("daemon stopped")
	return firstErr
}

// Wait blocks until the context is cancelled, then stops the daemon. This is
// the main loop for the daemon subcommand.
func (d *Daemon) Wait(ctx context.Context) error {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return d.Stop(shutdownCtx)
}

func (d *Daemon) runPipeline(ctx context.Context) {
	start := time.Now()
	summary, err := d.runner.Run(ctx)
	if err != nil {
		d.logger.Error("scheduled pipeline run failed", logfields.Error(err))
		return
	}
	d.logger.Info("scheduled pipeline run finished",
		slog.Int("processed", summary.Processed),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("queued", summary.Queued),
		slog.Int("failed", summary.Failed),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

func (d *Daemon) drainQueue(ctx context.Context) {
	summary, err := d.drainer.Drain(ctx)
	if err != nil {
		d.logger.Error("scheduled drain failed", logfields.Error(err))
		return
	}
	if summary.Attempted == 0 {
		return
	}
	d.logger.Info("scheduled drain finished",
		slog.Int("attempted", summary.Attempted),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("rescheduled", summary.Rescheduled),
		slog.Int("abandoned", summary.Abandoned))
}
