package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backends differ in timestamp precision; millisecond times survive all of them.
var baseTime = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

func newLink(code string, at time.Time) *Link {
	return &Link{
		ID:        uuid.NewString(),
		URL:       "https://example.com/" + code,
		ShortCode: code,
		CreatedAt: at,
	}
}

func testLinkStorage(t *testing.T, store LinkStorage) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		alias := "alias-one"
		link := newLink(alias, baseTime)
		link.CustomAlias = &alias
		require.NoError(t, store.Create(ctx, link))

		got, err := store.GetByCode(ctx, alias)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, link.ID, got.ID)
		assert.Equal(t, link.URL, got.URL)
		assert.Equal(t, int64(0), got.Clicks)
		require.NotNil(t, got.CustomAlias)
		assert.Equal(t, alias, *got.CustomAlias)
		assert.True(t, got.CreatedAt.Equal(baseTime))
	})

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := store.GetByCode(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate short code", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, newLink("dupe01", baseTime)))
		err := store.Create(ctx, newLink("dupe01", baseTime))
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, newLink("click1", baseTime)))

		const n = 25
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.IncrementClicks(ctx, "click1"))
			}()
		}
		wg.Wait()

		got, err := store.GetByCode(ctx, "click1")
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.Clicks)
	})

	t.Run("increment unknown code is a no-op", func(t *testing.T) {
		assert.NoError(t, store.IncrementClicks(ctx, "nobody"))
		got, err := store.GetByCode(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list recent newest first", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Create(ctx, newLink(fmt.Sprintf("recent%d", i), baseTime.Add(time.Duration(i+1)*time.Hour))))
		}

		links, err := store.ListRecent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, "recent4", links[0].ShortCode)
		assert.Equal(t, "recent3", links[1].ShortCode)
		assert.Equal(t, "recent2", links[2].ShortCode)
	})
}

func newPost(slug string, at time.Time) *Post {
	return &Post{
		ID:         uuid.NewString(),
		Slug:       slug,
		Title:      "Title " + slug,
		Content:    "# " + slug,
		AuthorType: AuthorHuman,
		Source:     SourceAPI,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func testPostStorage(t *testing.T, store PostStorage) {
	ctx := context.Background()

	t.Run("create get update", func(t *testing.T) {
		post := newPost("first-post", baseTime)
		require.NoError(t, store.Create(ctx, post))

		got, err := store.GetBySlug(ctx, "first-post")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, post.ID, got.ID)
		assert.Nil(t, got.Summary)
		assert.Equal(t, AuthorHuman, got.AuthorType)
		assert.Equal(t, SourceAPI, got.Source)

		summary := "updated summary"
		got.Title = "Renamed"
		got.Summary = &summary
		got.AuthorType = AuthorAgent
		got.Source = SourceCLI
		got.UpdatedAt = baseTime.Add(time.Hour)
		require.NoError(t, store.Update(ctx, got))

		updated, err := store.GetBySlug(ctx, "first-post")
		require.NoError(t, err)
		assert.Equal(t, post.ID, updated.ID)
		assert.Equal(t, "Renamed", updated.Title)
		require.NotNil(t, updated.Summary)
		assert.Equal(t, summary, *updated.Summary)
		assert.Equal(t, AuthorAgent, updated.AuthorType)
		assert.Equal(t, SourceCLI, updated.Source)
		assert.True(t, updated.CreatedAt.Equal(baseTime))
		assert.True(t, updated.UpdatedAt.Equal(baseTime.Add(time.Hour)))
	})

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := store.GetBySlug(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, newPost("dupe", baseTime)))
		assert.ErrorIs(t, store.Create(ctx, newPost("dupe", baseTime)), ErrDuplicateKey)
	})

	t.Run("update unknown slug is a no-op", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, newPost("ghost", baseTime)))
		got, err := store.GetBySlug(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list recent newest first", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, newPost("newest", baseTime.Add(48*time.Hour))))

		posts, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, "newest", posts[0].Slug)
	})
}
