package storage

import (
	"context"
	"errors"
)

// ErrDuplicateKey is returned by Create when a unique index (short code or
// slug) already holds the key.
var ErrDuplicateKey = errors.New("duplicate key")

// LinkStorage is the link table: lookups return (nil, nil) on a miss.
type LinkStorage interface {
	Create(ctx context.Context, link *Link) error
	GetByCode(ctx context.Context, code string) (*Link, error)
	IncrementClicks(ctx context.Context, code string) error
	ListRecent(ctx context.Context, limit int) ([]Link, error)
}

type PostStorage interface {
	Create(ctx context.Context, post *Post) error
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	Update(ctx context.Context, post *Post) error
	ListRecent(ctx context.Context, limit int) ([]Post, error)
}
