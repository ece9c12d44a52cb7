package keygate

import (
	"sync"
	"time"
)

// validationCache holds recent license validation verdicts so repeated
// checks of the same key within the TTL stay local. Entries are evicted
// oldest-first when the cache is full.
type validationCache struct {
	mu         sync.RWMutex
	entries    map[string]cachedValidation
	ttl        time.Duration
	maxEntries int
	hits       int64
	misses     int64
}

type cachedValidation struct {
	validation Validation
	cachedAt   time.Time
}

func newValidationCache(ttl time.Duration, maxEntries int) *validationCache {
	return &validationCache{
		entries:    make(map[string]cachedValidation),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (c *validationCache) get(key string) (*Validation, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Since(entry.cachedAt) > c.ttl {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil, false
	}

	c.hits++
	v := entry.validation
	return &v, true
}

func (c *validationCache) set(key string, v Validation) {
	if c.ttl <= 0 || c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = cachedValidation{validation: v, cachedAt: time.Now()}
}

func (c *validationCache) invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// evictOldest removes the entry cached longest ago. Caller holds the lock.
func (c *validationCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// stats returns hit/miss counters, for the client's debug logging.
func (c *validationCache) stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}
