package main

import (
	"log/slog"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/generator"
	"git.home.luguber.info/inful/blogsmith/internal/metrics"
	"git.home.luguber.info/inful/blogsmith/internal/notify"
	"git.home.luguber.info/inful/blogsmith/internal/pipeline"
	"git.home.luguber.info/inful/blogsmith/internal/publisher"
	"git.home.luguber.info/inful/blogsmith/internal/queue"
	"git.home.luguber.info/inful/blogsmith/internal/storage"
	"git.home.luguber.info/inful/blogsmith/internal/store"
)

// app holds a fully wired instance of the system. Everything hangs off the
// sqlite store, so Close tears the wiring down in one place.
type app struct {
	store        *store.Store
	orchestrator *pipeline.Orchestrator
	drainer      *queue.Drainer
	queue        *queue.Queue

	natsSink *notify.NATSSink
	fsStore  *storage.FSStore
}

// buildApp wires collaborators from configuration. The recorder is injected
// so the daemon can pass a Prometheus-backed one while one-shot commands use
// the no-op recorder.
func buildApp(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*app, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &app{store: st}

	pubs := []publisher.Publisher{
		publisher.NewWordPressPublisher(cfg.Publish.Timeout),
	}
	if cfg.Archive.SigningSecret != "" {
		objStore, err := storage.NewFSStore(cfg.Archive.Dir)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.fsStore = objStore
		signer, err := storage.NewURLSigner(cfg.Archive.SigningSecret, cfg.Archive.BaseURL, cfg.Archive.URLTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		pubs = append(pubs, publisher.NewArchivePublisher(objStore, signer))
	} else {
		logger.Debug("archive publishing disabled, no signing secret configured")
	}
	registry := publisher.NewRegistry(pubs...)

	q, err := queue.New(st, queue.PolicyFromConfig(cfg.Retry, cfg.Publish), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = q

	notifier, err := a.buildNotifier(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.drainer = queue.NewDrainer(st, q, registry, notifier, recorder, logger)
	a.orchestrator = pipeline.NewOrchestrator(pipeline.Options{
		Store:           st,
		Generator:       generator.NewAnthropicGenerator(cfg.Generator, logger),
		Feeds:           generator.NewFeedReader(cfg.Generator, logger),
		Registry:        registry,
		Queue:           q,
		Notifier:        notifier,
		Recorder:        recorder,
		Logger:          logger,
		GeneratorConfig: cfg.Generator,
		DeadlineMargin:  cfg.Publish.DeadlineMargin,
	})

	return a, nil
}

func (a *app) buildNotifier(cfg *config.Config, logger *slog.Logger) (notify.Sink, error) {
	var sinks notify.Fanout
	if len(cfg.Notify.WebhookURLs) > 0 {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURLs, cfg.Notify.Timeout, logger))
	}
	if cfg.Notify.NATS.URL != "" {
		ns, err := notify.NewNATSSink(cfg.Notify.NATS, logger)
		if err != nil {
			return nil, err
		}
		a.natsSink = ns
		sinks = append(sinks, ns)
	}
	if len(sinks) == 0 {
		return notify.Noop{}, nil
	}
	return sinks, nil
}

func (a *app) Close() {
	if a.natsSink != nil {
		_ = a.natsSink.Close()
	}
	if a.fsStore != nil {
		_ = a.fsStore.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
