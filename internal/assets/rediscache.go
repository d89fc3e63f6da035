package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "asset:"

// redisCache shares cached assets across gateway instances.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisCache(addr, password string, db int, ttl time.Duration) (*redisCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &redisCache{client: rdb, ttl: ttl}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (Entry, bool) {
	fields, err := c.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil || len(fields) == 0 {
		return Entry{}, false
	}
	body, ok := fields["body"]
	if !ok {
		return Entry{}, false
	}
	return Entry{Body: []byte(body), ContentType: fields["ct"]}, true
}

func (c *redisCache) Set(ctx context.Context, key string, e Entry) {
	rkey := redisKeyPrefix + key
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, rkey, "ct", e.ContentType, "body", e.Body)
	if c.ttl > 0 {
		pipe.Expire(ctx, rkey, c.ttl)
	}
	_, _ = pipe.Exec(ctx)
}
