package featurecache

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

type memoryEntry struct {
	partial      features.Partial
	expiresAt    time.Time
	lastAccessed time.Time
}

// MemoryCache is a thread-safe in-process cache with optional TTL and LRU
// eviction.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	ttl        time.Duration
	maxEntries int
	metrics    *Metrics
	now        func() time.Time
}

// NewMemoryCache creates a cache. A zero ttl never expires entries and a
// zero maxEntries never evicts.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetMetrics sets the metrics tracker for this cache.
func (c *MemoryCache) SetMetrics(m *Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Get returns the entry for key. Expired entries are removed and reported
// as a miss.
func (c *MemoryCache) Get(_ context.Context, key string) (features.Partial, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.metrics.recordMiss(BackendMemory)
		return features.Partial{}, false, nil
	}

	now := c.now()
	if c.ttl > 0 && now.After(entry.expiresAt) {
		delete(c.entries, key)
		c.metrics.setSize(BackendMemory, len(c.entries))
		c.metrics.recordMiss(BackendMemory)
		return features.Partial{}, false, nil
	}

	entry.lastAccessed = now
	c.metrics.recordHit(BackendMemory)
	return entry.partial, true, nil
}

// Set stores p under key, evicting the least recently used entry when the
// cache is full.
func (c *MemoryCache) Set(_ context.Context, key string, p features.Partial) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}

	now := c.now()
	c.entries[key] = &memoryEntry{
		partial:      p,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
	c.metrics.setSize(BackendMemory, len(c.entries))
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// collected.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
	c.metrics.setSize(BackendMemory, 0)
}

// evictLRU removes the least recently used entry. Caller must hold the
// write lock.
func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for key, entry := range c.entries {
		if first || entry.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessed
			first = false
		}
	}

	if !first {
		delete(c.entries, oldestKey)
		c.metrics.recordEviction(BackendMemory)
	}
}

var _ Cache = (*MemoryCache)(nil)
