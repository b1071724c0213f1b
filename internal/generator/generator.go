// Package generator produces article topics and drafts through a pluggable
// text-generation backend.
package generator

import (
	"context"

	"git.home.luguber.info/inful/blogsmith/internal/model"
)

// Usage records the token consumption of a single backend call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Add accumulates another usage into this one.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// BlogContext carries the per-blog inputs a backend may condition on.
type BlogContext struct {
	BlogName     string
	Category     string
	Locale       string
	RecentTitles []string
}

// Generator is the capability set of a text-generation backend. Model choice
// is a configuration value per call site (cheap model for topics, stronger
// model for drafts), not a per-blog property.
type Generator interface {
	// GenerateTopic proposes one article topic for the blog.
	GenerateTopic(ctx context.Context, bc BlogContext) (string, Usage, error)
	// GenerateDraft writes a draft for the topic.
	GenerateDraft(ctx context.Context, topic string, bc BlogContext) (model.Draft, Usage, error)
}
