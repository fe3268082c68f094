package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "stockwatch:alerts"

// Cache stores computed envelopes in Redis under per-company versioned keys.
// Bumping a company's version orphans every key built before it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client or non-positive ttl
// disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func versionKey(companyID int64) string {
	return cacheKeyPrefix + ":version:" + strconv.FormatInt(companyID, 10)
}

// Version returns the current cache version of a company, initialising when missing.
func (c *Cache) Version(ctx context.Context, companyID int64) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(companyID)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey(companyID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey(companyID)).Int64()
	}
	return ver, err
}

// BuildKey composes the cache key with the company's current version. It is
// empty when caching is disabled.
func (c *Cache) BuildKey(ctx context.Context, companyID int64, parts ...string) (string, error) {
	if !c.enabled() {
		return "", nil
	}
	ver, err := c.Version(ctx, companyID)
	if err != nil {
		return "", err
	}
	all := append([]string{cacheKeyPrefix, "lowstock", strconv.FormatInt(companyID, 10), "v" + strconv.FormatInt(ver, 10)}, parts...)
	return strings.Join(all, ":"), nil
}

// Get loads a cached envelope. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (Envelope, bool, error) {
	if !c.enabled() {
		return Envelope{}, false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Envelope{}, false, nil
	}
	if err != nil {
		return Envelope{}, false, err
	}
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, false, err
	}
	return env, true, nil
}

// Set stores an envelope for the configured ttl.
func (c *Cache) Set(ctx context.Context, key string, env Envelope) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates every cached envelope of a company.
func (c *Cache) Bump(ctx context.Context, companyID int64) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, versionKey(companyID)).Err()
}
