package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ethan041028/audacieuses-content/internal/platform/cache"
)

// ContentCache keeps recently read activities, canonical content included.
// Get reports a miss with ok=false and a nil error.
type ContentCache interface {
	Get(ctx context.Context, id string) (a Activity, ok bool, err error)
	Set(ctx context.Context, a Activity) error
	Delete(ctx context.Context, id string) error
}

// NopContentCache never stores anything.
type NopContentCache struct{}

func (NopContentCache) Get(context.Context, string) (Activity, bool, error) {
	return Activity{}, false, nil
}
func (NopContentCache) Set(context.Context, Activity) error  { return nil }
func (NopContentCache) Delete(context.Context, string) error { return nil }

const contentKeyPrefix = "activity:content:"

// RedisContentCache stores activities as JSON in Redis.
type RedisContentCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisContentCache wraps c. Entries expire after ttl; zero keeps them.
func NewRedisContentCache(c *cache.Cache, ttl time.Duration) *RedisContentCache {
	return &RedisContentCache{cache: c, ttl: ttl}
}

func (r *RedisContentCache) Get(ctx context.Context, id string) (Activity, bool, error) {
	v, err := r.cache.Get(ctx, contentKeyPrefix+id)
	if errors.Is(err, cache.ErrMiss) {
		return Activity{}, false, nil
	}
	if err != nil {
		return Activity{}, false, err
	}

	var a Activity
	if err := json.Unmarshal([]byte(v), &a); err != nil {
		return Activity{}, false, fmt.Errorf("decode cached activity %s: %w", id, err)
	}
	return a, true, nil
}

func (r *RedisContentCache) Set(ctx context.Context, a Activity) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode activity %s: %w", a.ID, err)
	}
	return r.cache.Set(ctx, contentKeyPrefix+a.ID, string(data), r.ttl)
}

func (r *RedisContentCache) Delete(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, contentKeyPrefix+id)
}
