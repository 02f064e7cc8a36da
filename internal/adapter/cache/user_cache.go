package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-events-service/internal/domain/user"
	"user-events-service/internal/metrics"
)

// ErrNilUser is returned when Set is called without a user.
var ErrNilUser = errors.New("cannot cache nil user")

// UserCache stores users by id. A miss is reported as (nil, nil).
type UserCache interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	Set(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
}

// RedisUserCache implements UserCache on top of Redis string keys holding
// the JSON form of a user.
type RedisUserCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a Redis-backed user cache. Keys are "<prefix>:<id>".
func NewRedisUserCache(client redis.Cmdable, prefix string, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
	}
}

func (c *RedisUserCache) key(id int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, id)
}

// Get retrieves a user from Redis.
func (c *RedisUserCache) Get(ctx context.Context, id int64) (*domain.User, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("miss")
		return nil, nil
	}
	if err != nil {
		metrics.RecordCacheLookup("error")
		return nil, fmt.Errorf("failed to read cached user %d: %w", id, err)
	}

	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		metrics.RecordCacheLookup("error")
		// a corrupt entry would otherwise keep failing until it expires
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil, fmt.Errorf("failed to decode cached user %d: %w", id, err)
	}

	metrics.RecordCacheLookup("hit")
	return &u, nil
}

// Set stores a user with the configured TTL.
func (c *RedisUserCache) Set(ctx context.Context, u *domain.User) error {
	if u == nil {
		return ErrNilUser
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user %d for cache: %w", u.ID, err)
	}

	if err := c.client.Set(ctx, c.key(u.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user %d: %w", u.ID, err)
	}

	c.log.Debug("cached user", zap.Int64("user_id", u.ID), zap.Duration("ttl", c.ttl))
	return nil
}

// Delete removes a user from Redis. Deleting an absent key is not an error.
func (c *RedisUserCache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to evict cached user %d: %w", id, err)
	}
	return nil
}
