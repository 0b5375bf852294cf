package settings

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is never surfaced to callers of Repository.Get.
var ErrCacheMiss = errors.New("settings cache miss")

// Cache holds encoded snapshots keyed by feature, category and chat.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type memoryCache struct {
	items *lru.LRU[string, []byte]
}

func NewMemoryCache(size int, ttl time.Duration) *memoryCache {
	return &memoryCache{items: lru.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := c.items.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte) error {
	c.items.Add(key, value)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.items.Remove(key)
	return nil
}

type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache shares settings snapshots between bot replicas.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *redisCache {
	return &redisCache{client: client, prefix: "settings:", ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	return value, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) error {
	return errors.Wrap(c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(), "redis set")
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return errors.Wrap(c.client.Del(ctx, c.prefix+key).Err(), "redis del")
}
