package cache

import (
	"encoding/json"
	"unsafe"
)

// Stats reports cache occupancy and effectiveness.
type Stats struct {
	Entries     int     `json:"entries"`
	MemoryBytes int     `json:"memory_bytes"` // approximate
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
}

// Stats returns a snapshot of cache statistics. Memory is approximated
// from key lengths plus the JSON encoding size of each value.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bytes := 0
	for key, e := range c.entries {
		bytes += len(key) + int(unsafe.Sizeof(*e))
		if data, err := json.Marshal(e.value); err == nil {
			bytes += len(data)
		}
	}

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}

	return Stats{
		Entries:     len(c.entries),
		MemoryBytes: bytes,
		Hits:        c.hits,
		Misses:      c.misses,
		HitRate:     rate,
	}
}

// Size returns the current number of entries, expired or not.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
