package config

import (
	"fmt"
	"net/url"
)

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if NormalizeRetryBackoff(c.Retry.Backoff) == "" {
		return fmt.Errorf("retry.backoff must be one of fixed, linear, exponential (got %q)", c.Retry.Backoff)
	}
	if c.Retry.Initial > c.Retry.Max {
		return fmt.Errorf("retry.initial (%v) must not exceed retry.max (%v)", c.Retry.Initial, c.Retry.Max)
	}
	if c.Publish.Timeout >= c.Publish.DeadlineMargin*10 {
		// A publish call longer than the whole margin window would defeat the
		// stuck-blog protection.
		return fmt.Errorf("publish.timeout (%v) is implausibly large relative to deadline_margin (%v)", c.Publish.Timeout, c.Publish.DeadlineMargin)
	}
	for _, u := range c.Notify.WebhookURLs {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("notify.webhook_urls contains invalid URL %q", u)
		}
	}
	if c.Notify.NATS.URL != "" && c.Notify.NATS.Subject == "" {
		return fmt.Errorf("notify.nats.subject is required when notify.nats.url is set")
	}
	return nil
}
