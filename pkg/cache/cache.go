package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache is an in-memory key/value store with per-entry TTL.
// Expiry is checked lazily on Get; a best-effort sweeper can bound memory
// but correctness never depends on it.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	hits    uint64
	misses  uint64

	// now is injectable for TTL boundary tests
	now func() time.Time
}

// entry is a single cached value with its expiry bookkeeping
type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// valid reports whether the entry is still live at the given instant.
// An entry is valid strictly before storedAt+ttl.
func (e *entry) valid(now time.Time) bool {
	return now.Sub(e.storedAt) < e.ttl
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// NewWithClock creates a cache with an injected clock.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Get retrieves a value if present and unexpired. Expired entries are
// evicted on the spot and reported as misses.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if !e.valid(c.now()) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return e.value, true
}

// Set stores a value with the given TTL, overwriting any prior entry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		value:    value,
		storedAt: c.now(),
		ttl:      ttl,
	}
}

// Invalidate removes all entries whose key starts with prefix and returns
// how many were removed. Used after mutations so subsequent reads go fresh.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
}

// Sweep evicts all expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !e.valid(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on a fixed interval until ctx is cancelled.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// ResetStats resets hit/miss counters.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits = 0
	c.misses = 0
}
