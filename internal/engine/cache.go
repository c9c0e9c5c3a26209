package engine

import (
	"sync"
	"time"

	"github.com/salespatriot/fscflow/internal/model"
)

// cacheEntry is one memoized classification result.
type cacheEntry struct {
	expiry time.Time
	result model.ClassificationResult
}

// resultCache memoizes classification results by request fingerprint.
// Entries are replaced wholesale on refresh, never merged, and are
// re-derivable: losing the cache on restart is acceptable.
type resultCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newResultCache creates a cache with the given TTL and starts its sweep
// goroutine.
func newResultCache(ttl time.Duration) *resultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}

	cache := &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.sweep()

	return cache
}

// get returns the cached result for key if present and unexpired.
func (c *resultCache) get(key string) (model.ClassificationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return model.ClassificationResult{}, false
	}
	return entry.result, true
}

// put stores a result under key. Last write wins for concurrent runs of the
// same fingerprint.
func (c *resultCache) put(key string, result model.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		result: result,
		expiry: time.Now().Add(c.ttl),
	}
}

// sweep periodically removes expired entries.
func (c *resultCache) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries, expired or not.
func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweep goroutine.
func (c *resultCache) Close() {
	close(c.stopCh)
}
