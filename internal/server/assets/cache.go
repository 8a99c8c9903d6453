package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ConnectRedis accepts either a redis:// URL or a bare host:port.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

type RedisCache struct {
	client redis.Cmdable
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return b, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedFetcher serves repeated fetches of the same locator from a cache.
// Cache failures are logged and fall through to the wrapped fetcher.
type CachedFetcher struct {
	next   Fetcher
	cache  Cache
	ttl    time.Duration
	logger logging.Logger
}

func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration, l logging.Logger) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: l.With("module", "asset_cache")}
}

func (f *CachedFetcher) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	key := cacheKey(loc)

	b, err := f.cache.Get(ctx, key)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		f.logger.Warn(ctx, "asset cache read failed", "locator", loc.String(), "error", err)
	}

	b, err = f.next.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, key, b, f.ttl); err != nil {
		f.logger.Warn(ctx, "asset cache write failed", "locator", loc.String(), "error", err)
	}
	return b, nil
}

// cacheKey covers the token: content fetched with one credential must not
// be served to a caller holding another one or none.
func cacheKey(loc Locator) string {
	sum := sha256.Sum256([]byte(string(loc.Source) + "\x00" + loc.Owner + "\x00" + loc.Repo + "\x00" + loc.Path + "\x00" + loc.Token))
	return "scriptguard:asset:" + hex.EncodeToString(sum[:])
}
