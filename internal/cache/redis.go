// Package cache provides the Redis-backed cart cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/averix/storefront/internal/domain/cart"
)

const (
	baseTTL   = 15 * time.Minute
	maxJitter = 5 * time.Minute
)

var _ cart.Cache = (*RedisCache)(nil)

// RedisCache caches carts in Redis keyed by user. TTLs carry random jitter
// so a burst of writes does not expire in lockstep.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache returns a RedisCache using the given client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached cart for the user, or cart.ErrCacheMiss.
func (r *RedisCache) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cached cart: %w", err)
	}
	return &c, nil
}

// Set stores the cart under the user's key with a jittered TTL.
func (r *RedisCache) Set(ctx context.Context, userID string, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	ttl := baseTTL + rand.N(maxJitter)
	if err := r.client.Set(ctx, cacheKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete drops the user's cached cart.
func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return "cart:" + userID
}

// Noop is a cart.Cache that caches nothing. Used when Redis is not
// configured; every Get is a miss.
type Noop struct{}

var _ cart.Cache = Noop{}

func (Noop) Get(context.Context, string) (*cart.Cart, error) { return nil, cart.ErrCacheMiss }
func (Noop) Set(context.Context, string, *cart.Cart) error   { return nil }
func (Noop) Delete(context.Context, string) error            { return nil }
