package config

import "time"

// applyDefaults fills zero-valued fields with working defaults so a minimal
// config file stays usable.
func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "blogsmith.db"
	}

	if c.Generator.TopicModel == "" {
		c.Generator.TopicModel = "claude-3-5-haiku-latest"
	}
	if c.Generator.DraftModel == "" {
		c.Generator.DraftModel = "claude-sonnet-4-20250514"
	}
	if c.Generator.TopicMaxTokens <= 0 {
		c.Generator.TopicMaxTokens = 800
	}
	if c.Generator.DraftMaxTokens <= 0 {
		c.Generator.DraftMaxTokens = 2000
	}
	if c.Generator.TopicTemperature == 0 {
		c.Generator.TopicTemperature = 0.2
	}
	if c.Generator.DraftTemperature == 0 {
		c.Generator.DraftTemperature = 0.3
	}
	if c.Generator.Timeout <= 0 {
		c.Generator.Timeout = 60 * time.Second
	}
	if c.Generator.FeedTimeout <= 0 {
		c.Generator.FeedTimeout = 10 * time.Second
	}
	if c.Generator.RecentTitleLimit <= 0 {
		c.Generator.RecentTitleLimit = 10
	}

	if c.Publish.Timeout <= 0 {
		c.Publish.Timeout = 30 * time.Second
	}
	if c.Publish.DeadlineMargin <= 0 {
		c.Publish.DeadlineMargin = 45 * time.Second
	}
	if c.Publish.MaxRetries <= 0 {
		c.Publish.MaxRetries = 3
	}

	if c.Retry.Backoff == "" {
		c.Retry.Backoff = string(RetryBackoffExponential)
	}
	if c.Retry.Initial <= 0 {
		c.Retry.Initial = 5 * time.Minute
	}
	if c.Retry.Max <= 0 {
		c.Retry.Max = 6 * time.Hour
	}

	if c.Archive.Dir == "" {
		c.Archive.Dir = ".blogsmith/archives"
	}
	if c.Archive.URLTTL <= 0 {
		c.Archive.URLTTL = 15 * time.Minute
	}

	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = 10 * time.Second
	}

	if c.Daemon.RunInterval <= 0 {
		c.Daemon.RunInterval = 24 * time.Hour
	}
	if c.Daemon.DrainInterval <= 0 {
		c.Daemon.DrainInterval = 15 * time.Minute
	}
}
