package sim

import (
	"sync"
	"time"
)

const (
	defaultCacheEntries = 512
	defaultCacheTTL     = 15 * time.Minute
)

// resultCache is a thread-safe key-to-result map with TTL expiry and a hard
// entry cap. When full, expired entries are evicted first, then the oldest
// insertion.
type resultCache struct {
	mu         sync.RWMutex
	maxEntries int
	ttl        time.Duration
	items      map[string]*cacheItem
	now        func() time.Time
}

type cacheItem struct {
	result     Result
	insertedAt time.Time
	expiresAt  time.Time
}

func newResultCache(maxEntries int, ttl time.Duration) *resultCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &resultCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		items:      make(map[string]*cacheItem),
		now:        time.Now,
	}
}

func (c *resultCache) get(key string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.now().After(item.expiresAt) {
		return nil, false
	}
	out := item.result
	return &out, true
}

func (c *resultCache) put(key string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxEntries {
		c.evictLocked()
	}

	now := c.now()
	c.items[key] = &cacheItem{
		result:     *result,
		insertedAt: now,
		expiresAt:  now.Add(c.ttl),
	}
}

// evictLocked removes all expired entries; if none were expired it drops
// the oldest insertion to make room.
func (c *resultCache) evictLocked() {
	now := c.now()
	removed := false
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			removed = true
		}
	}
	if removed {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.insertedAt.Before(oldest) {
			oldestKey = key
			oldest = item.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *resultCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
