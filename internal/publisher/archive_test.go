package publisher

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/storage"
)

func newArchivePublisher(t *testing.T, store storage.ObjectStore) *ArchivePublisher {
	t.Helper()
	signer, err := storage.NewURLSigner("secret", "https://archive.example.com", 15*time.Minute)
	require.NoError(t, err)
	return NewArchivePublisher(store, signer)
}

func readBundle(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	entries := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = content
	}
	return entries
}

func TestArchivePublishStoresBundle(t *testing.T) {
	store := storage.NewMockStore()
	p := newArchivePublisher(t, store)
	p.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	blog := model.Blog{ID: 2, Name: "Ops Notebook", Platform: model.PlatformArchive}
	result, err := p.Publish(context.Background(), blog, testDocument())
	require.NoError(t, err)

	assert.NotEmpty(t, result.Locator)
	assert.True(t, strings.HasPrefix(result.URL, "https://archive.example.com/archive/"+result.Locator))
	assert.Contains(t, result.URL, "sig=")
	assert.Contains(t, result.URL, "expires=")

	obj, err := store.Get(context.Background(), result.Locator)
	require.NoError(t, err)
	assert.Equal(t, storage.ObjectTypeArchiveBundle, obj.Type)
	assert.Equal(t, "testing-backups", obj.Metadata.Custom["slug"])

	entries := readBundle(t, obj.Data)
	require.Contains(t, entries, "testing-backups.html")
	require.Contains(t, entries, "meta.json")
	assert.Contains(t, string(entries["testing-backups.html"]), "<h1>Testing backups</h1>")

	var meta bundleMeta
	require.NoError(t, json.Unmarshal(entries["meta.json"], &meta))
	assert.Equal(t, "Testing backups", meta.Title)
	assert.Equal(t, "Ops Notebook", meta.BlogName)
}

func TestArchivePublishDeterministicLocator(t *testing.T) {
	store := storage.NewMockStore()
	p := newArchivePublisher(t, store)
	p.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	blog := model.Blog{Name: "Ops Notebook", Platform: model.PlatformArchive}
	first, err := p.Publish(context.Background(), blog, testDocument())
	require.NoError(t, err)
	second, err := p.Publish(context.Background(), blog, testDocument())
	require.NoError(t, err)

	assert.Equal(t, first.Locator, second.Locator, "same content must deduplicate")
	assert.Equal(t, 1, store.Size())
}

func TestArchivePublishStoreFailure(t *testing.T) {
	store := storage.NewMockStore()
	store.FailPut = fmt.Errorf("disk full")
	p := newArchivePublisher(t, store)

	_, err := p.Publish(context.Background(), model.Blog{Name: "b"}, testDocument())
	require.Error(t, err)
	assert.Equal(t, errors.CategoryStorage, errors.GetCategory(err))
}
