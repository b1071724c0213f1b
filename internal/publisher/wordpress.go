package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/renderer"
)

// WordPressPublisher posts articles to a WordPress site through the REST
// API, authenticating with an application password.
type WordPressPublisher struct {
	httpClient *http.Client
}

// NewWordPressPublisher builds a publisher with the given request timeout.
func NewWordPressPublisher(timeout time.Duration) *WordPressPublisher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WordPressPublisher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *WordPressPublisher) Platform() model.Platform {
	return model.PlatformWordPress
}

// wpPostRequest is the REST payload for creating a post.
type wpPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
	Slug    string `json:"slug,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// wpPostResponse is the subset of the create-post response we use.
type wpPostResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// Publish creates a post at <blog URL>/wp-json/wp/v2/posts. HTTP outcomes
// map to error classes: 401/403 are permanent auth failures, other 4xx are
// permanent rejections, 408/429 and 5xx are retryable.
func (p *WordPressPublisher) Publish(ctx context.Context, blog model.Blog, doc *renderer.Document) (*Result, error) {
	if blog.WPUser == "" || blog.WPAppPassword == "" {
		return nil, errors.New(errors.CategoryConfig, errors.SeverityError, "blog has no WordPress credentials").
			WithContext("blog", blog.Name)
	}

	payload := wpPostRequest{
		Title:   doc.Meta.Title,
		Content: doc.HTML,
		Status:  "publish",
		Slug:    doc.Meta.Slug,
		Excerpt: doc.Meta.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.InternalError("marshal post payload", err)
	}

	endpoint := strings.TrimRight(blog.URL, "/") + "/wp-json/wp/v2/posts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.InternalError("build post request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(blog.WPUser, blog.WPAppPassword)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, errors.PublishTimeout(string(model.PlatformWordPress), err)
		}
		return nil, errors.PublishTransient(string(model.PlatformWordPress), err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var created wpPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, errors.PublishTransient(string(model.PlatformWordPress),
			fmt.Errorf("decode create-post response: %w", err))
	}

	return &Result{
		PlatformID: strconv.FormatInt(created.ID, 10),
		URL:        created.Link,
	}, nil
}

// classifyStatus maps a non-2xx response to a classified error. The response
// body is read (bounded) so the message survives into the queue.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	platform := string(model.PlatformWordPress)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.PublishAuthRejected(platform, detail)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return errors.PublishTransient(platform, detail)
	case resp.StatusCode >= 500:
		return errors.PublishTransient(platform, detail)
	default:
		return errors.PublishRejected(platform, detail.Error())
	}
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
