package relations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "relations:version"

// ListCache caches the relation listing in Redis behind a version counter.
// Mutations bump the version, which invalidates every previous key without
// explicit deletes. A nil cache falls through to the loader.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewListCache instantiates the cache helper.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{client: client, ttl: ttl}
}

func (c *ListCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Fetch returns the cached listing or populates it via the loader. The
// loader call is wrapped in singleflight so concurrent misses fan in.
func (c *ListCache) Fetch(ctx context.Context, loader func(context.Context) ([]Relation, error)) ([]Relation, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	ver, err := c.version(ctx)
	if err != nil {
		// Cache unavailable; serve from the store.
		return loader(ctx)
	}
	key := fmt.Sprintf("relations:list:%d", ver)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []Relation
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(loaded); err == nil {
			_ = c.client.Set(ctx, key, encoded, c.ttl).Err()
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Relation), nil
}

// Bump invalidates the cached listing after a mutation.
func (c *ListCache) Bump(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Incr(ctx, cacheVersionKey).Err()
}
