// Package storage provides content-addressable storage for archived article
// bundles, plus signed retrieval URLs for serving them.
package storage

import (
	"context"
	"time"
)

// ObjectStore stores article bundles by content hash. Identical content
// deduplicates to a single object.
type ObjectStore interface {
	// Put stores an object and returns its content hash. Storing content
	// that already exists returns the existing hash without writing.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by content hash. Returns ErrNotFound if the
	// object does not exist.
	Get(ctx context.Context, hash string) (*Object, error)

	// Exists reports whether an object with the given hash exists.
	Exists(ctx context.Context, hash string) (bool, error)

	// Delete removes an object. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, hash string) error

	// List returns the hashes of all objects of the given type, or all
	// objects when objectType is empty.
	List(ctx context.Context, objectType ObjectType) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Object is a stored artifact with its metadata.
type Object struct {
	Hash string
	Type ObjectType
	Size int64
	Data []byte

	Metadata Metadata
}

// Metadata stores per-object bookkeeping.
type Metadata struct {
	CreatedAt    time.Time
	LastAccessed time.Time

	// Custom allows store-specific key-value pairs, such as the article
	// slug an archive bundle belongs to.
	Custom map[string]string
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	// ObjectTypeArchiveBundle is a tar.gz archive of a rendered article.
	ObjectTypeArchiveBundle ObjectType = "archive_bundle"

	// ObjectTypeArticleHTML is a standalone rendered HTML document.
	ObjectTypeArticleHTML ObjectType = "article_html"
)

// ErrNotFound is returned when an object does not exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
