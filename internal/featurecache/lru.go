package featurecache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

// LRUCache is a bounded in-process cache backed by golang-lru's expirable
// LRU.
type LRUCache struct {
	lru     *expirable.LRU[string, features.Partial]
	metrics *Metrics
}

// NewLRUCache creates a cache holding at most size entries. A zero ttl never
// expires entries.
func NewLRUCache(size int, ttl time.Duration) (*LRUCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("lru cache size must be > 0, got %d", size)
	}
	c := &LRUCache{}
	c.lru = expirable.NewLRU[string, features.Partial](size, func(string, features.Partial) {
		c.metrics.recordEviction(BackendLRU)
	}, ttl)
	return c, nil
}

// SetMetrics sets the metrics tracker for this cache. Call before use.
func (c *LRUCache) SetMetrics(m *Metrics) {
	c.metrics = m
}

// Get returns the entry for key.
func (c *LRUCache) Get(_ context.Context, key string) (features.Partial, bool, error) {
	p, ok := c.lru.Get(key)
	if !ok {
		c.metrics.recordMiss(BackendLRU)
		return features.Partial{}, false, nil
	}
	c.metrics.recordHit(BackendLRU)
	return p, true, nil
}

// Set stores p under key.
func (c *LRUCache) Set(_ context.Context, key string, p features.Partial) error {
	c.lru.Add(key, p)
	c.metrics.setSize(BackendLRU, c.lru.Len())
	return nil
}

// Len returns the number of live entries.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

var _ Cache = (*LRUCache)(nil)
