package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogsmith/internal/model"
	"git.home.luguber.info/inful/blogsmith/internal/storage"
	"git.home.luguber.info/inful/blogsmith/internal/store"
)

func TestCollectGarbageKeepsReferencedArchives(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	fs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	a := &app{store: st, fsStore: fs}

	blogID, err := st.InsertBlog(ctx, &model.Blog{
		Name:      "Ops Notebook",
		URL:       "https://blog.example.com",
		Platform:  model.PlatformArchive,
		Active:    true,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	live, err := fs.Put(ctx, &storage.Object{Type: storage.ObjectTypeArchiveBundle, Data: []byte("live bundle")})
	require.NoError(t, err)
	stale, err := fs.Put(ctx, &storage.Object{Type: storage.ObjectTypeArchiveBundle, Data: []byte("stale bundle")})
	require.NoError(t, err)

	articleID, err := st.InsertArticle(ctx, &model.Article{
		BlogID:  blogID,
		Title:   "Testing backups",
		Content: "body",
		Status:  model.ArticleDraft,
	})
	require.NoError(t, err)
	require.NoError(t, st.MarkArticlePublished(ctx, articleID, "", live, time.Now()))

	removed, err := collectGarbage(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	exists, err := fs.Exists(ctx, live)
	require.NoError(t, err)
	assert.True(t, exists, "referenced bundle was collected")

	exists, err = fs.Exists(ctx, stale)
	require.NoError(t, err)
	assert.False(t, exists, "unreferenced bundle survived")
}

func TestCollectGarbageRequiresArchiveStorage(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = collectGarbage(context.Background(), &app{store: st})
	assert.Error(t, err)
}
