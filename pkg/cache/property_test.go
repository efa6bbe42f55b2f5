package cache

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCacheInvariants uses property-based testing to verify TTL invariants
// that should hold for any set/advance sequence
func TestCacheInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// Property 1: Get never returns a value at or past its expiry
	properties.Property("expired entries are never served", prop.ForAll(
		func(ttlMs int, elapsedMs int) bool {
			clock := newFakeClock()
			c := NewWithClock(clock.now)

			ttl := time.Duration(ttlMs) * time.Millisecond
			c.Set("k", "v", ttl)
			clock.advance(time.Duration(elapsedMs) * time.Millisecond)

			_, ok := c.Get("k")
			if elapsedMs < ttlMs {
				return ok
			}
			return !ok
		},
		gen.IntRange(1, 10000),
		gen.IntRange(0, 20000),
	))

	// Property 2: Invalidate removes exactly the matching prefix
	properties.Property("invalidate never touches other prefixes", prop.ForAll(
		func(suffix string) bool {
			c := New()
			c.Set("portfolio:"+suffix, 1, time.Minute)
			c.Set("user:"+suffix, 2, time.Minute)

			c.Invalidate("portfolio:")

			_, portfolioOk := c.Get("portfolio:" + suffix)
			_, userOk := c.Get("user:" + suffix)
			return !portfolioOk && userOk
		},
		gen.AlphaString(),
	))

	// Property 3: Set then immediate Get always round-trips
	properties.Property("fresh entries are always served", prop.ForAll(
		func(key string, value int64, ttlMs int) bool {
			c := New()
			c.Set(key, value, time.Duration(ttlMs)*time.Millisecond)

			got, ok := c.Get(key)
			return ok && got == value
		},
		gen.Identifier(),
		gen.Int64(),
		gen.IntRange(1000, 100000),
	))

	properties.TestingRun(t)
}
