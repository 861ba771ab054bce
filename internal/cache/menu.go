package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	applog "restrodesk/internal/log"
	"restrodesk/models"
)

const menuKey = "restrodesk:menu"

// MenuCache is a cache-aside layer over the finished-goods menu
// projection. Concurrent misses collapse into a single load via
// singleflight. A nil *MenuCache (or one without a client) always
// falls through to the loader, so callers never branch on whether
// redis is configured.
type MenuCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewMenu wraps a redis client. ttl bounds how stale the projection may
// get between invalidations.
func NewMenu(client *redis.Client, ttl time.Duration) *MenuCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MenuCache{client: client, ttl: ttl}
}

// Get returns the cached menu or loads, caches and returns it. Cache
// failures degrade to the loader rather than failing the read.
func (c *MenuCache) Get(ctx context.Context, load func(context.Context) ([]models.FinishedGood, error)) ([]models.FinishedGood, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, menuKey).Result()
	if err == nil {
		var goods []models.FinishedGood
		if jsonErr := json.Unmarshal([]byte(raw), &goods); jsonErr == nil {
			return goods, nil
		}
		applog.Warn(ctx, "discarding unreadable menu cache entry")
	} else if !errors.Is(err, redis.Nil) {
		applog.Warn(ctx, "menu cache read failed", "error", err)
		return load(ctx)
	}

	result, err, _ := c.group.Do(menuKey, func() (any, error) {
		goods, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if body, jsonErr := json.Marshal(goods); jsonErr == nil {
			if setErr := c.client.Set(ctx, menuKey, body, c.ttl).Err(); setErr != nil {
				applog.Warn(ctx, "menu cache write failed", "error", setErr)
			}
		}
		return goods, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.FinishedGood), nil
}

// Invalidate drops the cached projection after a menu or stock change.
func (c *MenuCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, menuKey).Err(); err != nil {
		applog.Warn(ctx, "menu cache invalidation failed", "error", err)
	}
}
