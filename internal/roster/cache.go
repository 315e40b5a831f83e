package roster

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "feedboard:admin:"

// Cache wraps a Checker with a Redis-backed verdict cache. Cache failures
// fall through to the underlying checker; only the store's answer is
// authoritative.
type Cache struct {
	client *redis.Client
	next   Checker
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache constructs a Cache in front of next.
func NewCache(client *redis.Client, next Checker, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{client: client, next: next, ttl: ttl, logger: logger}
}

// IsAdmin returns the cached verdict when present, otherwise consults the
// underlying checker and caches its answer.
func (c *Cache) IsAdmin(ctx context.Context, userID string) (bool, error) {
	key := cacheKeyPrefix + userID

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached == "1", nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("admin cache read failed")
	}

	admin, err := c.next.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}

	value := "0"
	if admin {
		value = "1"
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("admin cache write failed")
	}
	return admin, nil
}
