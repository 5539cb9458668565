package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// LinkCacheInterface caches the redirect target of a short code. Click counts
// are never cached; stats always read the store.
type LinkCacheInterface interface {
	Get(ctx context.Context, code string) (*CachedLink, error)
	Set(ctx context.Context, code string, link *CachedLink, ttl time.Duration) error
}

type LinkCache struct {
	client *redis.Client
}

type CachedLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func NewLinkCache(client *redis.Client) *LinkCache {
	return &LinkCache{client: client}
}

func key(code string) string {
	return "link:" + code
}

// Get returns (nil, nil) on a cache miss.
func (c *LinkCache) Get(ctx context.Context, code string) (*CachedLink, error) {
	val, err := c.client.Get(ctx, key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached CachedLink
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

func (c *LinkCache) Set(ctx context.Context, code string, link *CachedLink, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key(code), data, ttl).Err()
}
