package assets

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one cached asset response.
type Entry struct {
	Body        []byte
	ContentType string
}

// Cache is a read-through cache for static asset responses, keyed by request
// path.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, e Entry)
}

// NewCache selects the cache backend: Redis when an address is configured,
// in-memory otherwise.
func NewCache(redisAddr, redisPassword string, redisDB int, ttl time.Duration, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if redisAddr == "" {
		logger.Info("asset cache backend", "type", "in-memory", "ttl", ttl)
		return newMemoryCache(ttl), nil
	}
	logger.Info("asset cache backend", "type", "redis", "addr", redisAddr, "ttl", ttl)
	return newRedisCache(redisAddr, redisPassword, redisDB, ttl)
}

type memoryEntry struct {
	entry   Entry
	expires time.Time
}

type memoryCache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]memoryEntry
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		ttl: ttl,
		m:   make(map[string]memoryEntry),
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	me, ok := c.m[key]
	if !ok {
		return Entry{}, false
	}
	if c.ttl > 0 && time.Now().After(me.expires) {
		delete(c.m, key)
		return Entry{}, false
	}
	return me.entry, true
}

func (c *memoryCache) Set(_ context.Context, key string, e Entry) {
	c.mu.Lock()
	c.m[key] = memoryEntry{entry: e, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
