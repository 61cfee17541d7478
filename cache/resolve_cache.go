package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/anjiri1684/mock_exams/logger"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const generationKey = "resolve:gen"

// ResolveCache keeps rendered path lookups in Redis. Entries are keyed by a generation
// number that every catalog change bumps, so a lookup never sees an entry written
// before the last committed change. A nil *ResolveCache is a valid, disabled cache.
type ResolveCache struct {
	client *redis.Client
	ttl    time.Duration
}

var Resolve *ResolveCache

func Connect(ctx context.Context, url string, ttl time.Duration) (*ResolveCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return New(client, ttl), nil
}

func New(client *redis.Client, ttl time.Duration) *ResolveCache {
	return &ResolveCache{client: client, ttl: ttl}
}

func entryKey(gen int64, path string) string {
	return fmt.Sprintf("resolve:%d:%s", gen, path)
}

func (c *ResolveCache) generation(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// Lookup returns the cached payload for path and the generation it was looked up
// under; pass that generation back to Store on a miss.
func (c *ResolveCache) Lookup(ctx context.Context, path string) (payload []byte, gen int64, hit bool) {
	if c == nil {
		return nil, 0, false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		logger.Log.Warn("resolve cache generation read failed", "error", err)
		return nil, 0, false
	}
	payload, err = c.client.Get(ctx, entryKey(gen, path)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("resolve cache read failed", "path", path, "error", err)
		}
		return nil, gen, false
	}
	return payload, gen, true
}

func (c *ResolveCache) Store(ctx context.Context, gen int64, path string, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, entryKey(gen, path), payload, c.ttl).Err(); err != nil {
		logger.Log.Warn("resolve cache write failed", "path", path, "error", err)
	}
}

// Invalidate moves every reader to a fresh generation. Old entries expire by TTL.
func (c *ResolveCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		logger.Log.Error("resolve cache invalidation failed", "error", err)
	}
}

func (c *ResolveCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
