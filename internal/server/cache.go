package server

import (
	"sync"
	"time"
)

// pageCache is a small in-memory TTL cache for parsed responses. The
// upstream changes slowly, so a few minutes of caching absorbs most repeat
// traffic without a dedicated store.
type pageCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	expires time.Time
}

func newPageCache(ttl time.Duration) *pageCache {
	return &pageCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *pageCache) Get(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}

	return e.value, true
}

func (c *pageCache) Set(key string, value any) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// opportunistic sweep keeps the map from growing unbounded
	if len(c.entries) > 256 {
		now := time.Now()
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = cacheEntry{value: value, expires: time.Now().Add(c.ttl)}
}
