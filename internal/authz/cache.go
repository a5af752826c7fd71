package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const grantCacheVersionKey = "authz:grants:version"

// GrantCache keeps raw grant sets in Redis behind a global version counter.
// Any grant or role mutation bumps the version, which invalidates every
// cached set at once without scanning keys.
type GrantCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewGrantCache constructs the cache helper. A nil client disables caching.
func NewGrantCache(client *redis.Client, ttl time.Duration) *GrantCache {
	return &GrantCache{client: client, ttl: ttl}
}

// Fetch loads a cached grant set or populates it from the loader. Loads for
// the same key are collapsed through singleflight.
func (c *GrantCache) Fetch(ctx context.Context, key string, loader func(context.Context) ([]string, error)) ([]string, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	versioned, err := c.versionedKey(ctx, key)
	if err != nil {
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, versioned).Bytes()
	if err == nil {
		var ids []string
		if err := json.Unmarshal(payload, &ids); err == nil {
			return ids, nil
		}
	} else if err != redis.Nil {
		return loader(ctx)
	}

	result, err, _ := c.group.Do(versioned, func() (any, error) {
		ids, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		_ = c.client.Set(ctx, versioned, raw, c.ttl).Err()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Bump invalidates all cached grant sets.
func (c *GrantCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, grantCacheVersionKey).Err()
}

func (c *GrantCache) versionedKey(ctx context.Context, key string) (string, error) {
	ver, err := c.client.Get(ctx, grantCacheVersionKey).Int64()
	if err == redis.Nil {
		ver = 1
		if err := c.client.Set(ctx, grantCacheVersionKey, ver, 0).Err(); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", key, ver), nil
}

// CachedSource wraps a resource-agnostic GrantSource with the GrantCache.
// Resource grants must not be wrapped: their expiry is evaluated at the
// instant of the check.
type CachedSource struct {
	source GrantSource
	cache  *GrantCache
	logger *slog.Logger
}

// NewCachedSource wraps src with cache.
func NewCachedSource(src GrantSource, cache *GrantCache, logger *slog.Logger) *CachedSource {
	return &CachedSource{source: src, cache: cache, logger: logger}
}

// Name implements GrantSource.
func (s *CachedSource) Name() string {
	return s.source.Name()
}

// Grants implements GrantSource.
func (s *CachedSource) Grants(ctx context.Context, p Principal, res *Resource) ([]string, error) {
	key := fmt.Sprintf("authz:grants:%s:%s:%s", s.source.Name(), p.Kind, p.ID)
	return s.cache.Fetch(ctx, key, func(ctx context.Context) ([]string, error) {
		return s.source.Grants(ctx, p, nil)
	})
}
