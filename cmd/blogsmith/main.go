package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blogsmith/internal/config"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Drain bool `help:"Also retry due queue entries after the run"`
	} `cmd:"" help:"Run the pipeline once across all active blogs"`

	Drain struct{} `cmd:"" help:"Retry due queue entries and exit"`

	Daemon struct{} `cmd:"" help:"Run pipeline and queue drain on a schedule"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`

	Blog struct {
		Add struct {
			Name          string `required:"" help:"Display name of the blog"`
			URL           string `required:"" help:"Base URL of the blog"`
			Platform      string `default:"wordpress" help:"Publishing platform (wordpress or archive)"`
			WPUser        string `help:"WordPress username"`
			WPAppPassword string `help:"WordPress application password"`
			FeedURL       string `help:"RSS/Atom feed used to avoid repeating recent topics"`
			Category      string `help:"Topic category the blog writes about"`
		} `cmd:"" help:"Register a blog"`

		List struct{} `cmd:"" help:"List all blogs"`

		Deactivate struct {
			ID int64 `arg:"" help:"Blog id"`
		} `cmd:"" help:"Deactivate a blog; its queue entries stop being drained"`

		RotateCredentials struct {
			ID            int64  `arg:"" help:"Blog id"`
			WPUser        string `required:"" help:"New WordPress username"`
			WPAppPassword string `required:"" help:"New WordPress application password"`
		} `cmd:"" help:"Replace a blog's WordPress credentials"`
	} `cmd:"" help:"Manage blogs"`

	GC struct{} `cmd:"" help:"Remove archive objects no article references"`

	Stats struct {
		Since string `default:"720h" help:"Window to aggregate over, as a Go duration"`
	} `cmd:"" help:"Show cost and outcome totals from the execution log"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch kctx.Command() {
	case "run":
		err = withConfig(func(cfg *config.Config) error {
			return runOnce(ctx, cfg, logger, CLI.Run.Drain)
		})
	case "drain":
		err = withConfig(func(cfg *config.Config) error {
			return runDrain(ctx, cfg, logger)
		})
	case "daemon":
		err = withConfig(func(cfg *config.Config) error {
			return runDaemon(ctx, cfg, logger)
		})
	case "init":
		err = runInit(CLI.Config, CLI.Init.Force)
	case "blog add":
		err = withConfig(func(cfg *config.Config) error {
			return runBlogAdd(ctx, cfg)
		})
	case "blog list":
		err = withConfig(func(cfg *config.Config) error {
			return runBlogList(ctx, cfg)
		})
	case "blog deactivate <id>":
		err = withConfig(func(cfg *config.Config) error {
			return runBlogDeactivate(ctx, cfg, CLI.Blog.Deactivate.ID)
		})
	case "blog rotate-credentials <id>":
		err = withConfig(func(cfg *config.Config) error {
			return runBlogRotate(ctx, cfg, CLI.Blog.RotateCredentials.ID)
		})
	case "gc":
		err = withConfig(func(cfg *config.Config) error {
			return runGC(ctx, cfg, logger)
		})
	case "stats":
		err = withConfig(func(cfg *config.Config) error {
			return runStats(ctx, cfg, CLI.Stats.Since)
		})
	default:
		kctx.FatalIfErrorf(kctx.PrintUsage(false))
		return
	}

	if err != nil {
		logger.Error("command failed", slog.String("command", kctx.Command()), slog.Any("error", err))
		os.Exit(1)
	}
}

func withConfig(fn func(cfg *config.Config) error) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	return fn(cfg)
}
