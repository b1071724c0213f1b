package publisher

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/renderer"
	"git.home.luguber.info/inful/blogsmith/internal/storage"
)

// ArchivePublisher packages the rendered document into a tar.gz bundle,
// stores it in the object store, and returns a signed retrieval URL. The
// object hash is the article's locator.
type ArchivePublisher struct {
	store  storage.ObjectStore
	signer *storage.URLSigner
	now    func() time.Time
}

func NewArchivePublisher(store storage.ObjectStore, signer *storage.URLSigner) *ArchivePublisher {
	return &ArchivePublisher{
		store:  store,
		signer: signer,
		now:    time.Now,
	}
}

func (p *ArchivePublisher) Platform() model.Platform {
	return model.PlatformArchive
}

// bundleMeta is the meta.json entry written alongside the article HTML.
type bundleMeta struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	Locale      string    `json:"locale"`
	BlogName    string    `json:"blog_name"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// Publish writes "<slug>.html" and "meta.json" into a tar.gz bundle and
// stores it. Identical content deduplicates to the same locator.
func (p *ArchivePublisher) Publish(ctx context.Context, blog model.Blog, doc *renderer.Document) (*Result, error) {
	meta := bundleMeta{
		Title:       doc.Meta.Title,
		Description: doc.Meta.Description,
		Slug:        doc.Meta.Slug,
		Locale:      doc.Meta.Locale,
		BlogName:    blog.Name,
		ArchivedAt:  p.now().UTC(),
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, errors.InternalError("marshal bundle metadata", err)
	}

	bundle, err := buildBundle(doc.Meta.Slug+".html", []byte(doc.HTML), metaJSON, meta.ArchivedAt)
	if err != nil {
		return nil, errors.StorageError("build archive bundle", err)
	}

	hash, err := p.store.Put(ctx, &storage.Object{
		Type: storage.ObjectTypeArchiveBundle,
		Data: bundle,
		Metadata: storage.Metadata{
			Custom: map[string]string{
				"slug":      doc.Meta.Slug,
				"blog_name": blog.Name,
			},
		},
	})
	if err != nil {
		return nil, errors.StorageError("store archive bundle", err)
	}

	return &Result{
		Locator: hash,
		URL:     p.signer.SignedURL(hash),
	}, nil
}

func buildBundle(htmlName string, html, metaJSON []byte, modTime time.Time) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	files := []struct {
		name string
		data []byte
	}{
		{name: htmlName, data: html},
		{name: "meta.json", data: metaJSON},
	}
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.name,
			Mode:    0644,
			Size:    int64(len(f.data)),
			ModTime: modTime,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("write tar header %s: %w", f.name, err)
		}
		if _, err := tw.Write(f.data); err != nil {
			return nil, fmt.Errorf("write tar entry %s: %w", f.name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return buf.Bytes(), nil
}
