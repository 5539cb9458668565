package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryLinkStorage keeps links in a map keyed by short code. Values handed
// out are copies so callers cannot bypass IncrementClicks.
type MemoryLinkStorage struct {
	mu    sync.RWMutex
	links map[string]*Link
}

func NewMemoryLinkStorage() *MemoryLinkStorage {
	return &MemoryLinkStorage{links: make(map[string]*Link)}
}

func (m *MemoryLinkStorage) Create(ctx context.Context, link *Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.ShortCode]; exists {
		return ErrDuplicateKey
	}
	stored := *link
	m.links[link.ShortCode] = &stored
	return nil
}

func (m *MemoryLinkStorage) GetByCode(ctx context.Context, code string) (*Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[code]
	if !exists {
		return nil, nil
	}
	copied := *link
	return &copied, nil
}

func (m *MemoryLinkStorage) IncrementClicks(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if link, exists := m.links[code]; exists {
		link.Clicks++
	}
	return nil
}

func (m *MemoryLinkStorage) ListRecent(ctx context.Context, limit int) ([]Link, error) {
	m.mu.RLock()
	links := make([]Link, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, *link)
	}
	m.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	if len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

// Len returns the number of stored links.
func (m *MemoryLinkStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

type MemoryPostStorage struct {
	mu    sync.RWMutex
	posts map[string]*Post
}

func NewMemoryPostStorage() *MemoryPostStorage {
	return &MemoryPostStorage{posts: make(map[string]*Post)}
}

func (m *MemoryPostStorage) Create(ctx context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.posts[post.Slug]; exists {
		return ErrDuplicateKey
	}
	stored := *post
	m.posts[post.Slug] = &stored
	return nil
}

func (m *MemoryPostStorage) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	post, exists := m.posts[slug]
	if !exists {
		return nil, nil
	}
	copied := *post
	return &copied, nil
}

func (m *MemoryPostStorage) Update(ctx context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.posts[post.Slug]
	if !exists {
		return nil
	}
	stored.Title = post.Title
	stored.Summary = post.Summary
	stored.Content = post.Content
	stored.AuthorType = post.AuthorType
	stored.Source = post.Source
	stored.UpdatedAt = post.UpdatedAt
	return nil
}

func (m *MemoryPostStorage) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	m.mu.RLock()
	posts := make([]Post, 0, len(m.posts))
	for _, post := range m.posts {
		posts = append(posts, *post)
	}
	m.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (m *MemoryPostStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.posts)
}
