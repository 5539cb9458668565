package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"devlog-shortener/pkg/cache"
	"devlog-shortener/pkg/logging"
	"devlog-shortener/pkg/storage"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL   = "https://s.pcstyle.dev"
	recentLinksLimit = 10
)

type LinkConfig struct {
	BaseURL  string
	CacheTTL time.Duration
	Random   RandomSource
}

type LinkService struct {
	storage  storage.LinkStorage
	cache    cache.LinkCacheInterface
	logger   *logging.Logger
	baseURL  string
	cacheTTL time.Duration
	rng      RandomSource
	now      func() time.Time
}

// NewLinkService wires the allocator and redirect path. cache may be nil.
func NewLinkService(storage storage.LinkStorage, cache cache.LinkCacheInterface, logger *logging.Logger, cfg LinkConfig) *LinkService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Random == nil {
		cfg.Random = DefaultRandomSource
	}
	return &LinkService{
		storage:  storage,
		cache:    cache,
		logger:   logger,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		cacheTTL: cfg.CacheTTL,
		rng:      cfg.Random,
		now:      time.Now,
	}
}

type CreateLinkRequest struct {
	URL         string  `json:"url"`
	CustomAlias *string `json:"customAlias,omitempty"`
}

type CreateLinkResponse struct {
	ID        string `json:"id"`
	ShortCode string `json:"shortCode"`
	ShortURL  string `json:"shortUrl"`
}

type LinkStats struct {
	URL       string    `json:"url"`
	ShortCode string    `json:"shortCode"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *LinkService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	parsedURL, ok := ValidateURL(req.URL)
	scheme := ""
	if parsedURL != nil {
		scheme = parsedURL.Scheme
	}
	s.logger.LogURLValidation(ctx, ok, scheme)
	if !ok {
		return nil, ErrInvalidURL
	}

	var (
		code  string
		alias *string
		err   error
	)
	// An empty alias means "generate one".
	if req.CustomAlias != nil && *req.CustomAlias != "" {
		alias = req.CustomAlias
		code, err = s.claimAlias(ctx, *alias)
	} else {
		code, err = s.allocateCode(ctx)
	}
	if err != nil {
		s.logger.LogLinkOperation(ctx, "create", code, false)
		return nil, err
	}

	link := &storage.Link{
		ID:          uuid.New().String(),
		URL:         req.URL,
		ShortCode:   code,
		CustomAlias: alias,
		Clicks:      0,
		CreatedAt:   s.now(),
	}

	// The probe and the insert are separate operations; the unique index on
	// short_code catches the request that loses the race.
	if err := s.storage.Create(ctx, link); err != nil {
		s.logger.LogLinkOperation(ctx, "create", code, false)
		if errors.Is(err, storage.ErrDuplicateKey) {
			if alias != nil {
				return nil, ErrAliasTaken
			}
			return nil, ErrRetryAllocation
		}
		return nil, fmt.Errorf("insert link: %w", err)
	}

	s.logger.LogLinkOperation(ctx, "create", code, true)

	return &CreateLinkResponse{
		ID:        link.ID,
		ShortCode: code,
		ShortURL:  s.baseURL + "/" + code,
	}, nil
}

// claimAlias performs exactly one existence check; collisions are final.
func (s *LinkService) claimAlias(ctx context.Context, alias string) (string, error) {
	if !ValidateAlias(alias) {
		return "", ErrInvalidAlias
	}
	existing, err := s.storage.GetByCode(ctx, alias)
	if err != nil {
		return "", fmt.Errorf("lookup alias: %w", err)
	}
	if existing != nil {
		return "", ErrAliasTaken
	}
	return alias, nil
}

func (s *LinkService) allocateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		code := GenerateCode(s.rng)
		existing, err := s.storage.GetByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("lookup short code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
		s.logger.Debug(ctx, "short code collision", "code", code, "attempt", attempt+1)
	}
	return "", ErrAllocationExhausted
}

// Resolve returns the destination for code, consulting the cache first. It
// never writes to the store.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, code)
		if err != nil {
			s.logger.Warn(ctx, "link cache read failed", "code", code, "error", err)
		} else if cached != nil {
			return cached.URL, nil
		}
	}

	link, err := s.storage.GetByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("lookup short code: %w", err)
	}
	if link == nil {
		return "", ErrNotFound
	}

	if s.cache != nil {
		cachedLink := &cache.CachedLink{ID: link.ID, URL: link.URL}
		if err := s.cache.Set(ctx, code, cachedLink, s.cacheTTL); err != nil {
			s.logger.Warn(ctx, "link cache write failed", "code", code, "error", err)
		}
	}

	return link.URL, nil
}

// RecordClick adds one click to code. Unknown codes are ignored.
func (s *LinkService) RecordClick(ctx context.Context, code string) error {
	if err := s.storage.IncrementClicks(ctx, code); err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	return nil
}

func (s *LinkService) GetLink(ctx context.Context, code string) (*storage.Link, error) {
	link, err := s.storage.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup short code: %w", err)
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return link, nil
}

func (s *LinkService) GetLinkStats(ctx context.Context, code string) (*LinkStats, error) {
	link, err := s.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}
	return &LinkStats{
		URL:       link.URL,
		ShortCode: link.ShortCode,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt,
	}, nil
}

// ListRecentLinks returns the newest links first.
func (s *LinkService) ListRecentLinks(ctx context.Context) ([]storage.Link, error) {
	links, err := s.storage.ListRecent(ctx, recentLinksLimit)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}
