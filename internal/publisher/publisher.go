// Package publisher delivers rendered articles to their destination
// platform. Each platform implements Publisher; the Registry maps a blog's
// platform to the implementation.
package publisher

import (
	"context"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/renderer"
)

// Result describes a successful publish.
type Result struct {
	// PlatformID is the platform's identifier for the created post, when
	// the platform assigns one.
	PlatformID string

	// Locator is a stable internal reference to the published content,
	// such as an object hash for archived articles.
	Locator string

	// URL is where the published article can be read.
	URL string
}

// Publisher delivers a rendered document for one platform.
type Publisher interface {
	// Platform names the platform this publisher serves.
	Platform() model.Platform

	// Publish delivers the document to the blog's platform. Errors are
	// classified: retryable errors mean the same document may be
	// re-submitted later, permanent errors mean it must not be.
	Publish(ctx context.Context, blog model.Blog, doc *renderer.Document) (*Result, error)
}

// Registry maps platforms to publishers.
type Registry struct {
	publishers map[model.Platform]Publisher
}

// NewRegistry builds a registry over the given publishers.
func NewRegistry(pubs ...Publisher) *Registry {
	r := &Registry{publishers: make(map[model.Platform]Publisher, len(pubs))}
	for _, p := range pubs {
		r.publishers[p.Platform()] = p
	}
	return r
}

// For returns the publisher serving the given platform.
func (r *Registry) For(platform model.Platform) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, errors.New(errors.CategoryValidation, errors.SeverityError, "no publisher for platform").
			WithContext("platform", string(platform))
	}
	return p, nil
}
