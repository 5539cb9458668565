package storage

import (
	"time"
)

type Link struct {
	ID          string    `json:"id" db:"id"`
	URL         string    `json:"url" db:"url"`
	ShortCode   string    `json:"shortCode" db:"short_code"`
	CustomAlias *string   `json:"customAlias,omitempty" db:"custom_alias"`
	Clicks      int64     `json:"clicks" db:"clicks"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type AuthorType string

const (
	AuthorHuman AuthorType = "human"
	AuthorAgent AuthorType = "agent"
)

// Valid reports whether a is one of the known author types.
func (a AuthorType) Valid() bool {
	return a == AuthorHuman || a == AuthorAgent
}

type Source string

const (
	SourceAPI      Source = "api"
	SourceMarkdown Source = "markdown"
	SourceCLI      Source = "cli"
)

func (s Source) Valid() bool {
	switch s {
	case SourceAPI, SourceMarkdown, SourceCLI:
		return true
	}
	return false
}

type Post struct {
	ID         string     `json:"id" db:"id"`
	Slug       string     `json:"slug" db:"slug"`
	Title      string     `json:"title" db:"title"`
	Summary    *string    `json:"summary,omitempty" db:"summary"`
	Content    string     `json:"content" db:"content"`
	AuthorType AuthorType `json:"authorType" db:"author_type"`
	Source     Source     `json:"source" db:"source"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}
