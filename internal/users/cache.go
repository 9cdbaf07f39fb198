package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps recently read profiles. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, id string) (*User, error)
	Set(ctx context.Context, u User) error
	Delete(ctx context.Context, id string) error
}

// RedisCache stores profiles as JSON strings with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache builds a profile cache on an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "presence:user:", ttl: ttl}
}

// Get returns the cached profile or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, id string) (*User, error) {
	raw, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Set stores a profile until the TTL elapses.
func (c *RedisCache) Set(ctx context.Context, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+u.ID, raw, c.ttl).Err()
}

// Delete drops a profile so the next read hits storage.
func (c *RedisCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.prefix+id).Err()
}
