// Package model defines the persistent domain types shared across the pipeline:
// blogs, articles, execution log entries, and publishing queue entries.
package model

import "time"

// Platform enumerates supported publish targets. The set is closed: adding a
// platform means adding a publisher implementation, not editing a conditional.
type Platform string

const (
	// PlatformWordPress publishes through the WordPress REST API.
	PlatformWordPress Platform = "wordpress"
	// PlatformArchive packages the rendered document into an archive and
	// writes it to object storage for a downstream manual publish step.
	PlatformArchive Platform = "archive"
)

// Valid reports whether p is a known platform tag.
func (p Platform) Valid() bool {
	switch p {
	case PlatformWordPress, PlatformArchive:
		return true
	}
	return false
}

// Blog is a registered publish target. Rows are never hard-deleted; a blog is
// deactivated instead so article and log history stays referentially intact.
type Blog struct {
	ID            int64
	Name          string
	URL           string
	Platform      Platform
	WPUser        string
	WPAppPassword string
	FeedURL       string
	Category      string
	Active        bool
	CreatedAt     time.Time
}

// ArticleStatus is the lifecycle state of an article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
	ArticleFailed    ArticleStatus = "failed"
)

// Article is one generated piece of content for a blog. Status transitions are
// one-directional; a failed article is retried through a queue entry, never by
// resetting its status back to draft.
type Article struct {
	ID             int64
	BlogID         int64
	Title          string
	Content        string // raw generated draft (markdown)
	HTMLContent    string // rendered document, re-used verbatim on publish retries
	Status         ArticleStatus
	PlatformPostID string
	ArchiveLocator string
	ErrorMessage   string
	CreatedAt      time.Time
	AttemptedAt    *time.Time
	PublishedAt    *time.Time
}

// StepOutcome is the recorded outcome of a single pipeline stage.
type StepOutcome string

const (
	OutcomeSuccess StepOutcome = "success"
	OutcomeFailed  StepOutcome = "failed"
	OutcomeRetry   StepOutcome = "retry"
)

// Pipeline stage names as they appear in execution_logs.step.
const (
	StepTopicGeneration = "topic_generation"
	StepDraftWriting    = "draft_writing"
	StepRender          = "render"
	StepPublish         = "publish"
	StepRetryPublish    = "retry_publish"
)

// ExecutionLogEntry is a write-once record of one stage outcome. It is the
// system of record for cost accounting, so it is written for every stage
// including retry attempts.
type ExecutionLogEntry struct {
	ID         int64
	BlogID     int64
	Step       string
	Status     StepOutcome
	Message    string
	Duration   time.Duration
	TokensUsed int
	Cost       float64
	CreatedAt  time.Time
}

// QueueStatus is the state of a publishing queue entry.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueDone      QueueStatus = "done"
	QueueAbandoned QueueStatus = "abandoned"
)

// QueueEntry is a pending or settled publish retry for one article.
// Invariant: RetryCount <= MaxRetries; once equal the entry is abandoned and
// never becomes pending again.
type QueueEntry struct {
	ID          int64
	ArticleID   int64
	BlogID      int64
	Priority    int
	RetryCount  int
	MaxRetries  int
	Status      QueueStatus
	NextRetryAt time.Time
	CreatedAt   time.Time
}

// DefaultPriority is assigned to entries enqueued by the pipeline; lower
// values drain first.
const DefaultPriority = 100
