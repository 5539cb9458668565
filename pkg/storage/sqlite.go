package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                              // Local SQLite driver
)

// OpenSQL opens a local SQLite file or a remote libsql database depending on
// the DSN and makes sure the schema exists.
func OpenSQL(ctx context.Context, dsn string) (*sql.DB, error) {
	driverName := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") || strings.HasPrefix(dsn, "https://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// One writer at a time; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateSQL(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQL(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		custom_alias TEXT,
		clicks INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_links_created_at ON links(created_at);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		summary TEXT,
		content TEXT NOT NULL,
		author_type TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	`
	_, err := db.ExecContext(ctx, query)
	return err
}

// SQLite reports constraint failures only through the message text.
func isSQLUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Timestamps are stored as unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

type SQLLinkStorage struct {
	db *sql.DB
}

func NewSQLLinkStorage(db *sql.DB) *SQLLinkStorage {
	return &SQLLinkStorage{db: db}
}

func (s *SQLLinkStorage) Create(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (id, url, short_code, custom_alias, clicks, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, link.ID, link.URL, link.ShortCode, link.CustomAlias, link.Clicks, toMillis(link.CreatedAt))
	if isSQLUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLLink(row rowScanner) (*Link, error) {
	var (
		link        Link
		customAlias sql.NullString
		createdAt   int64
	)
	if err := row.Scan(&link.ID, &link.URL, &link.ShortCode, &customAlias, &link.Clicks, &createdAt); err != nil {
		return nil, err
	}
	if customAlias.Valid {
		link.CustomAlias = &customAlias.String
	}
	link.CreatedAt = fromMillis(createdAt)
	return &link, nil
}

func (s *SQLLinkStorage) GetByCode(ctx context.Context, code string) (*Link, error) {
	query := `SELECT id, url, short_code, custom_alias, clicks, created_at FROM links WHERE short_code = ?`
	link, err := scanSQLLink(s.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

func (s *SQLLinkStorage) IncrementClicks(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE links SET clicks = clicks + 1 WHERE short_code = ?`, code)
	return err
}

func (s *SQLLinkStorage) ListRecent(ctx context.Context, limit int) ([]Link, error) {
	query := `SELECT id, url, short_code, custom_alias, clicks, created_at FROM links ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		link, err := scanSQLLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

type SQLPostStorage struct {
	db *sql.DB
}

func NewSQLPostStorage(db *sql.DB) *SQLPostStorage {
	return &SQLPostStorage{db: db}
}

func scanSQLPost(row rowScanner) (*Post, error) {
	var (
		post                 Post
		summary              sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&post.ID, &post.Slug, &post.Title, &summary, &post.Content, &post.AuthorType, &post.Source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if summary.Valid {
		post.Summary = &summary.String
	}
	post.CreatedAt = fromMillis(createdAt)
	post.UpdatedAt = fromMillis(updatedAt)
	return &post, nil
}

func (s *SQLPostStorage) Create(ctx context.Context, post *Post) error {
	query := `INSERT INTO posts (` + postColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, post.ID, post.Slug, post.Title, post.Summary, post.Content,
		string(post.AuthorType), string(post.Source), toMillis(post.CreatedAt), toMillis(post.UpdatedAt))
	if isSQLUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (s *SQLPostStorage) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = ?`
	post, err := scanSQLPost(s.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

func (s *SQLPostStorage) Update(ctx context.Context, post *Post) error {
	query := `UPDATE posts SET title = ?, summary = ?, content = ?, author_type = ?, source = ?, updated_at = ? WHERE slug = ?`
	_, err := s.db.ExecContext(ctx, query, post.Title, post.Summary, post.Content,
		string(post.AuthorType), string(post.Source), toMillis(post.UpdatedAt), post.Slug)
	return err
}

func (s *SQLPostStorage) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		post, err := scanSQLPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}
