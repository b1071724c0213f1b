// Package notify fans out pipeline events to outbound sinks. Delivery is
// best effort: sink failures are logged, never propagated, so notification
// problems cannot fail a publish.
package notify

import (
	"context"
	"time"
)

// EventType classifies a notification.
type EventType string

const (
	// EventPublished fires when an article goes live.
	EventPublished EventType = "published"
	// EventAbandoned fires when retries are exhausted or a permanent
	// failure ends a publish.
	EventAbandoned EventType = "abandoned"
	// EventRunCompleted fires once per pipeline run with the summary.
	EventRunCompleted EventType = "run_completed"
)

// Event is the payload delivered to every sink.
type Event struct {
	Type      EventType `json:"type"`
	Blog      string    `json:"blog,omitempty"`
	Title     string    `json:"title,omitempty"`
	Slug      string    `json:"slug,omitempty"`
	URL       string    `json:"url,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink delivers events somewhere.
type Sink interface {
	Notify(ctx context.Context, event Event)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Notify(context.Context, Event) {}

// Fanout delivers every event to each sink in order.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, event Event) {
	for _, sink := range f {
		sink.Notify(ctx, event)
	}
}
