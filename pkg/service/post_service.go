package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"devlog-shortener/pkg/logging"
	"devlog-shortener/pkg/storage"

	"github.com/google/uuid"
)

const recentPostsLimit = 20

// FallbackSource serves posts kept on disk, used when the store has none.
type FallbackSource interface {
	List(ctx context.Context) ([]storage.Post, error)
	Get(ctx context.Context, slug string) (*storage.Post, error)
}

type PostService struct {
	storage  storage.PostStorage
	fallback FallbackSource
	logger   *logging.Logger
	now      func() time.Time
}

// NewPostService builds the devlog service. fallback may be nil.
func NewPostService(storage storage.PostStorage, fallback FallbackSource, logger *logging.Logger) *PostService {
	return &PostService{
		storage:  storage,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// UpsertPostRequest carries an already normalised slug.
type UpsertPostRequest struct {
	Slug       string
	Title      string
	Summary    *string
	Content    string
	AuthorType storage.AuthorType
	Source     storage.Source
}

type UpsertPostResult struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Created bool   `json:"created,omitempty"`
	Updated bool   `json:"updated,omitempty"`
}

func (s *PostService) UpsertPost(ctx context.Context, req *UpsertPostRequest) (*UpsertPostResult, error) {
	existing, err := s.storage.GetBySlug(ctx, req.Slug)
	if err != nil {
		return nil, fmt.Errorf("lookup slug: %w", err)
	}

	now := s.now()

	if existing != nil {
		return s.patchPost(ctx, existing, req, now)
	}

	post := &storage.Post{
		ID:         uuid.New().String(),
		Slug:       req.Slug,
		Title:      req.Title,
		Summary:    req.Summary,
		Content:    req.Content,
		AuthorType: req.AuthorType,
		Source:     req.Source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.storage.Create(ctx, post); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("insert post: %w", err)
		}
		// A concurrent upsert created the slug after our lookup; patch its row.
		existing, err = s.storage.GetBySlug(ctx, req.Slug)
		if err != nil {
			return nil, fmt.Errorf("lookup slug: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("insert post: %w", storage.ErrDuplicateKey)
		}
		return s.patchPost(ctx, existing, req, now)
	}
	s.logger.LogPostOperation(ctx, "upsert", req.Slug, true)
	return &UpsertPostResult{ID: post.ID, Slug: req.Slug, Created: true}, nil
}

func (s *PostService) patchPost(ctx context.Context, existing *storage.Post, req *UpsertPostRequest, now time.Time) (*UpsertPostResult, error) {
	existing.Title = req.Title
	existing.Summary = req.Summary
	existing.Content = req.Content
	existing.AuthorType = req.AuthorType
	existing.Source = req.Source
	existing.UpdatedAt = now
	if err := s.storage.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.logger.LogPostOperation(ctx, "upsert", req.Slug, false)
	return &UpsertPostResult{ID: existing.ID, Slug: req.Slug, Updated: true}, nil
}

// GetPost reads the store first and falls back to the on-disk catalogue.
func (s *PostService) GetPost(ctx context.Context, slug string) (*storage.Post, error) {
	post, err := s.storage.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup slug: %w", err)
	}
	if post != nil {
		return post, nil
	}

	if s.fallback != nil {
		post, err = s.fallback.Get(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("fallback post: %w", err)
		}
		if post != nil {
			return post, nil
		}
	}
	return nil, ErrNotFound
}

func (s *PostService) ListPosts(ctx context.Context) ([]storage.Post, error) {
	posts, err := s.storage.ListRecent(ctx, recentPostsLimit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if len(posts) > 0 || s.fallback == nil {
		return posts, nil
	}

	posts, err = s.fallback.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback posts: %w", err)
	}
	return posts, nil
}

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases input, collapses every run of characters outside
// [a-z0-9] into one hyphen and trims hyphens at both ends.
func Slugify(input string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(input), "-")
	return strings.Trim(slug, "-")
}

// IngestInput is the raw payload of the ingestion endpoint. Nil means the
// field was absent or not a string.
type IngestInput struct {
	Title      *string
	Summary    *string
	Slug       *string
	Content    *string
	AuthorType *string
	Source     *string
}

// BuildUpsertRequest applies defaults and normalisation to an ingestion
// payload. defaultSource depends on the payload shape.
func BuildUpsertRequest(in IngestInput, defaultSource storage.Source) (*UpsertPostRequest, error) {
	title := deref(in.Title)
	content := deref(in.Content)
	if title == "" || content == "" {
		return nil, ErrMissingRequiredField
	}

	slugInput := deref(in.Slug)
	if slugInput == "" {
		slugInput = title
	}
	slug := Slugify(slugInput)
	if slug == "" {
		return nil, ErrEmptySlug
	}

	authorType := storage.AuthorHuman
	if in.AuthorType != nil && storage.AuthorType(*in.AuthorType).Valid() {
		authorType = storage.AuthorType(*in.AuthorType)
	}
	source := defaultSource
	if in.Source != nil && storage.Source(*in.Source).Valid() {
		source = storage.Source(*in.Source)
	}

	return &UpsertPostRequest{
		Slug:       slug,
		Title:      title,
		Summary:    in.Summary,
		Content:    content,
		AuthorType: authorType,
		Source:     source,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
