// Package featurecache stores decoded model extractions keyed by content.
//
// Keys are built by the extraction package from the scoring version, rules
// version, model, seed, anchor date and canonical transcript, so a hit is
// always safe to reuse. Three backends are provided:
//
//	cache := featurecache.NewMemoryCache(24*time.Hour, 10_000) // TTL + LRU, process local
//	cache, err := featurecache.NewLRUCache(10_000, 24*time.Hour)  // golang-lru expirable LRU
//	cache, err := featurecache.NewRedisCache(ctx, featurecache.RedisConfig{Addr: "localhost:6379"})
//
// Only successful extractions are stored. Callers must treat returned values
// as read-only.
package featurecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendLRU    = "lru"
	BackendRedis  = "redis"
)

// Cache is the content-keyed store used by the model extractor.
type Cache interface {
	// Get returns the cached partial for key. ok is false on a miss.
	Get(ctx context.Context, key string) (p features.Partial, ok bool, err error)

	// Set stores p under key.
	Set(ctx context.Context, key string, p features.Partial) error
}

// Config selects and sizes a backend.
type Config struct {
	Backend    string
	TTL        time.Duration
	MaxEntries int
	Redis      RedisConfig
}

// New builds the backend named by cfg.Backend. An empty backend selects the
// in-memory cache.
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryCache(cfg.TTL, cfg.MaxEntries), nil
	case BackendLRU:
		return NewLRUCache(cfg.MaxEntries, cfg.TTL)
	case BackendRedis:
		rc := cfg.Redis
		if rc.TTL == 0 {
			rc.TTL = cfg.TTL
		}
		return NewRedisCache(ctx, rc)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// digest hashes a key for backends with key-length limits.
func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
