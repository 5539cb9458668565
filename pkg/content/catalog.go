// Package content serves the devlog posts shipped as files next to the
// binary. A posts.yaml manifest lists each entry and the file holding its
// body.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"devlog-shortener/pkg/storage"

	"gopkg.in/yaml.v3"
)

const manifestName = "posts.yaml"

type entry struct {
	Slug       string    `yaml:"slug"`
	Title      string    `yaml:"title"`
	Summary    string    `yaml:"summary"`
	AuthorType string    `yaml:"authorType"`
	Source     string    `yaml:"source"`
	CreatedAt  time.Time `yaml:"createdAt"`
	File       string    `yaml:"file"`
}

type Catalog struct {
	dir     string
	entries []entry
}

// Load reads the manifest in dir. A missing manifest yields an empty catalogue.
func Load(dir string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Catalog{dir: dir}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest struct {
		Posts []entry `yaml:"posts"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for i, e := range manifest.Posts {
		if e.Slug == "" || e.File == "" {
			return nil, fmt.Errorf("manifest entry %d: slug and file are required", i)
		}
	}

	sort.SliceStable(manifest.Posts, func(i, j int) bool {
		return manifest.Posts[i].CreatedAt.After(manifest.Posts[j].CreatedAt)
	})

	return &Catalog{dir: dir, entries: manifest.Posts}, nil
}

// List returns the catalogue newest first, without bodies.
func (c *Catalog) List(ctx context.Context) ([]storage.Post, error) {
	posts := make([]storage.Post, 0, len(c.entries))
	for _, e := range c.entries {
		posts = append(posts, e.post(""))
	}
	return posts, nil
}

// Get returns the entry for slug with its body, or nil when the slug is
// unknown. A listed entry whose file cannot be read is an error.
func (c *Catalog) Get(ctx context.Context, slug string) (*storage.Post, error) {
	for _, e := range c.entries {
		if e.Slug != slug {
			continue
		}
		body, err := os.ReadFile(filepath.Join(c.dir, filepath.Clean("/"+e.File)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.File, err)
		}
		post := e.post(string(body))
		return &post, nil
	}
	return nil, nil
}

func (e entry) post(body string) storage.Post {
	post := storage.Post{
		ID:         e.Slug,
		Slug:       e.Slug,
		Title:      e.Title,
		Content:    body,
		AuthorType: storage.AuthorType(e.AuthorType),
		Source:     storage.Source(e.Source),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.CreatedAt,
	}
	if !post.AuthorType.Valid() {
		post.AuthorType = storage.AuthorHuman
	}
	if !post.Source.Valid() {
		post.Source = storage.SourceMarkdown
	}
	if e.Summary != "" {
		summary := e.Summary
		post.Summary = &summary
	}
	return post
}
