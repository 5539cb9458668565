package content

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"devlog-shortener/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "posts.yaml", `
posts:
  - slug: older
    title: Older post
    authorType: agent
    source: cli
    createdAt: 2026-01-01T00:00:00Z
    file: older.mdx
  - slug: newer
    title: Newer post
    summary: fresh
    authorType: someone
    createdAt: 2026-02-01T00:00:00Z
    file: newer.mdx
  - slug: orphan
    title: File is gone
    createdAt: 2025-12-01T00:00:00Z
    file: missing.mdx
`)
	writeFile(t, dir, "older.mdx", "# Older")
	writeFile(t, dir, "newer.mdx", "# Newer")

	catalog, err := Load(dir)
	require.NoError(t, err)

	t.Run("list newest first without bodies", func(t *testing.T) {
		posts, err := catalog.List(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "newer", posts[0].Slug)
		assert.Equal(t, "older", posts[1].Slug)
		assert.Equal(t, "orphan", posts[2].Slug)
		for _, p := range posts {
			assert.Empty(t, p.Content)
		}
	})

	t.Run("get with body", func(t *testing.T) {
		post, err := catalog.Get(ctx, "older")
		require.NoError(t, err)
		require.NotNil(t, post)
		assert.Equal(t, "# Older", post.Content)
		assert.Equal(t, "older", post.ID)
		assert.Equal(t, storage.AuthorAgent, post.AuthorType)
		assert.Equal(t, storage.SourceCLI, post.Source)
		assert.Nil(t, post.Summary)
		assert.True(t, post.CreatedAt.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("unknown author and source get defaults", func(t *testing.T) {
		post, err := catalog.Get(ctx, "newer")
		require.NoError(t, err)
		require.NotNil(t, post)
		assert.Equal(t, storage.AuthorHuman, post.AuthorType)
		assert.Equal(t, storage.SourceMarkdown, post.Source)
		require.NotNil(t, post.Summary)
		assert.Equal(t, "fresh", *post.Summary)
	})

	t.Run("unknown slug is a miss", func(t *testing.T) {
		post, err := catalog.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, post)
	})

	t.Run("listed entry with unreadable file is an error", func(t *testing.T) {
		post, err := catalog.Get(ctx, "orphan")
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Contains(t, err.Error(), "missing.mdx")
		assert.Nil(t, post)
	})
}

func TestLoad_FileCannotEscapeDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "content")
	require.NoError(t, os.Mkdir(dir, 0o700))
	writeFile(t, root, "secret.txt", "do not serve")
	writeFile(t, dir, "posts.yaml", `
posts:
  - slug: sneaky
    title: Sneaky
    createdAt: 2026-01-01T00:00:00Z
    file: ../secret.txt
`)

	catalog, err := Load(dir)
	require.NoError(t, err)

	post, err := catalog.Get(context.Background(), "sneaky")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Nil(t, post)
}

func TestLoad_MissingManifest(t *testing.T) {
	catalog, err := Load(t.TempDir())
	require.NoError(t, err)

	posts, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestLoad_InvalidManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "posts.yaml", "posts:\n  - title: no slug\n    file: x.mdx\n")

	_, err := Load(dir)
	assert.Error(t, err)

	writeFile(t, dir, "posts.yaml", "posts: [unterminated")
	_, err = Load(dir)
	assert.Error(t, err)
}

func TestLoad_ShippedCatalogue(t *testing.T) {
	catalog, err := Load(filepath.Join("..", "..", "content"))
	require.NoError(t, err)

	posts, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, posts)

	for _, p := range posts {
		post, err := catalog.Get(context.Background(), p.Slug)
		require.NoError(t, err)
		require.NotNil(t, post, p.Slug)
		assert.NotEmpty(t, post.Content, p.Slug)
	}
}
