package asterdex

import (
	"sync"
	"time"

	"asterdex/internal/clock"
)

// cache is a TTL cache for market data responses. Only unauthenticated
// GET responses are ever stored, so entries hold raw body bytes.
type cache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	ttl   time.Duration
	clock clock.Clock
}

type cacheItem struct {
	body      []byte
	expiresAt time.Time
}

func newCache(ttl time.Duration, clk clock.Clock) *cache {
	return &cache{
		items: make(map[string]cacheItem),
		ttl:   ttl,
		clock: clk,
	}
}

// get returns the cached body for key, or nil when absent or expired.
func (c *cache) get(key string) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || c.clock.Now().After(item.expiresAt) {
		return nil
	}
	return item.body
}

func (c *cache) set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{
		body:      body,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheItem)
}
