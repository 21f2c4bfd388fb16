package featurecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

const defaultRedisPrefix = "intaketriage:features:"

// RedisConfig configures the shared cache backend.
type RedisConfig struct {
	Addr     string
	Password string `json:"-"`
	DB       int

	// Prefix is prepended to the hashed key. Defaults to
	// "intaketriage:features:".
	Prefix string

	// TTL of stored entries. Zero keeps them until evicted by Redis.
	TTL time.Duration
}

// RedisCache shares extractions across processes. Values are JSON encoded
// partials; keys are SHA-256 digests of the content key.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics *Metrics
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisCacheFromClient wraps an existing client without pinging it.
func NewRedisCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// SetMetrics sets the metrics tracker for this cache. Call before use.
func (c *RedisCache) SetMetrics(m *Metrics) {
	c.metrics = m
}

func (c *RedisCache) redisKey(key string) string {
	return c.prefix + digest(key)
}

// Get returns the entry for key. A value that no longer decodes is treated
// as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (features.Partial, bool, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.recordMiss(BackendRedis)
		return features.Partial{}, false, nil
	}
	if err != nil {
		c.metrics.recordError(BackendRedis, "get")
		return features.Partial{}, false, fmt.Errorf("redis get: %w", err)
	}

	var p features.Partial
	if err := json.Unmarshal(data, &p); err != nil {
		c.metrics.recordError(BackendRedis, "decode")
		c.metrics.recordMiss(BackendRedis)
		return features.Partial{}, false, nil
	}

	c.metrics.recordHit(BackendRedis)
	return p, true, nil
}

// Set stores p under key.
func (c *RedisCache) Set(ctx context.Context, key string, p features.Partial) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal partial: %w", err)
	}
	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		c.metrics.recordError(BackendRedis, "set")
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
