package safety

import (
	"sync"
	"time"
)

type cacheEntry struct {
	result  Result
	expires time.Time
}

// resultCache holds finished results by request id until their TTL lapses.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResultCache(now func() time.Time) *resultCache {
	return &resultCache{entries: make(map[string]cacheEntry), now: now}
}

func (c *resultCache) get(id string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Result{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, id)
		return Result{}, false
	}
	return e.result, true
}

func (c *resultCache) put(id string, r Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[id] = cacheEntry{result: r, expires: now.Add(ttl)}
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
