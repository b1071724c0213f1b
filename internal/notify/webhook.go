package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/logfields"
)

// WebhookSink POSTs events as JSON to one or more webhook URLs.
type WebhookSink struct {
	urls       []string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWebhookSink(urls []string, timeout time.Duration, logger *slog.Logger) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		urls:       urls,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (w *WebhookSink) Notify(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("webhook payload marshal failed", logfields.Error(err))
		return
	}

	for _, url := range w.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			w.logger.Warn("webhook request build failed", logfields.URL(url), logfields.Error(err))
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.httpClient.Do(req)
		if err != nil {
			w.logger.Warn("webhook delivery failed", logfields.URL(url), logfields.Error(err))
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			w.logger.Warn("webhook rejected",
				logfields.URL(url),
				slog.Int("status", resp.StatusCode))
		}
	}
}
