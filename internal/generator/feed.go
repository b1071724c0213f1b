package generator

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/logfields"
)

// FeedReader fetches recently published titles from a blog's RSS or Atom
// feed. Feed failures are reported to the caller but are expected to be
// treated as non-fatal: a missing feed just means topic generation runs
// without the repeat guard.
type FeedReader struct {
	parser  *gofeed.Parser
	limit   int
	timeout time.Duration
	logger  *slog.Logger
}

func NewFeedReader(cfg config.GeneratorConfig, logger *slog.Logger) *FeedReader {
	limit := cfg.RecentTitleLimit
	if limit <= 0 {
		limit = 10
	}
	return &FeedReader{
		parser:  gofeed.NewParser(),
		limit:   limit,
		timeout: cfg.FeedTimeout,
		logger:  logger,
	}
}

// RecentTitles returns up to the configured number of item titles from the
// feed at feedURL, newest first as the feed orders them. An empty feedURL
// returns no titles and no error.
func (f *FeedReader) RecentTitles(ctx context.Context, feedURL string) ([]string, error) {
	if feedURL == "" {
		return nil, nil
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		f.logger.Warn("feed fetch failed", logfields.URL(feedURL), logfields.Error(err))
		return nil, err
	}

	titles := make([]string, 0, f.limit)
	for _, item := range feed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		titles = append(titles, item.Title)
		if len(titles) >= f.limit {
			break
		}
	}
	return titles, nil
}
