package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

type PostgresLinkStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresLinkStorage(pool *pgxpool.Pool) *PostgresLinkStorage {
	return &PostgresLinkStorage{pool: pool}
}

func (s *PostgresLinkStorage) Create(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (id, url, short_code, custom_alias, clicks, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query, link.ID, link.URL, link.ShortCode, link.CustomAlias, link.Clicks, link.CreatedAt)
	if isPgUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (s *PostgresLinkStorage) GetByCode(ctx context.Context, code string) (*Link, error) {
	query := `SELECT id, url, short_code, custom_alias, clicks, created_at FROM links WHERE short_code = $1`
	row := s.pool.QueryRow(ctx, query, code)
	var link Link
	err := row.Scan(&link.ID, &link.URL, &link.ShortCode, &link.CustomAlias, &link.Clicks, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// IncrementClicks bumps the counter in a single statement so concurrent
// redirects never lose an increment. A missing code is a no-op.
func (s *PostgresLinkStorage) IncrementClicks(ctx context.Context, code string) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE short_code = $1`
	_, err := s.pool.Exec(ctx, query, code)
	return err
}

func (s *PostgresLinkStorage) ListRecent(ctx context.Context, limit int) ([]Link, error) {
	query := `SELECT id, url, short_code, custom_alias, clicks, created_at FROM links ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Link, error) {
		var link Link
		err := row.Scan(&link.ID, &link.URL, &link.ShortCode, &link.CustomAlias, &link.Clicks, &link.CreatedAt)
		return link, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect links: %w", err)
	}
	return links, nil
}

type PostgresPostStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresPostStorage(pool *pgxpool.Pool) *PostgresPostStorage {
	return &PostgresPostStorage{pool: pool}
}

const postColumns = `id, slug, title, summary, content, author_type, source, created_at, updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var post Post
	err := row.Scan(&post.ID, &post.Slug, &post.Title, &post.Summary, &post.Content, &post.AuthorType, &post.Source, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *PostgresPostStorage) Create(ctx context.Context, post *Post) error {
	query := `INSERT INTO posts (` + postColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, query, post.ID, post.Slug, post.Title, post.Summary, post.Content, post.AuthorType, post.Source, post.CreatedAt, post.UpdatedAt)
	if isPgUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (s *PostgresPostStorage) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = $1`
	post, err := scanPost(s.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

// Update patches every mutable column of the post identified by slug.
func (s *PostgresPostStorage) Update(ctx context.Context, post *Post) error {
	query := `UPDATE posts SET title = $2, summary = $3, content = $4, author_type = $5, source = $6, updated_at = $7 WHERE slug = $1`
	_, err := s.pool.Exec(ctx, query, post.Slug, post.Title, post.Summary, post.Content, post.AuthorType, post.Source, post.UpdatedAt)
	return err
}

func (s *PostgresPostStorage) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Post, error) {
		post, err := scanPost(row)
		if err != nil {
			return Post{}, err
		}
		return *post, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect posts: %w", err)
	}
	return posts, nil
}
