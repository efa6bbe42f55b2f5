package cache

import (
	"testing"
	"time"
)

// fakeClock provides a manually advanced clock for TTL boundary tests
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Unix(1700000000, 0)}
}

func (fc *fakeClock) now() time.Time {
	return fc.current
}

func (fc *fakeClock) advance(d time.Duration) {
	fc.current = fc.current.Add(d)
}

func TestGetSet(t *testing.T) {
	c := New()

	c.Set("portfolio:1", "alice", time.Minute)

	value, ok := c.Get("portfolio:1")
	if !ok {
		t.Fatal("expected hit for fresh entry")
	}
	if value != "alice" {
		t.Errorf("expected alice, got %v", value)
	}

	if _, ok := c.Get("portfolio:2"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestTTLBoundary(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.now)

	c.Set("portfolio:1", "alice", time.Second)

	// Valid strictly before storedAt+ttl
	clock.advance(999 * time.Millisecond)
	if _, ok := c.Get("portfolio:1"); !ok {
		t.Error("entry should be valid at 999ms of a 1000ms TTL")
	}

	// Absent exactly at storedAt+ttl
	clock.advance(time.Millisecond)
	if _, ok := c.Get("portfolio:1"); ok {
		t.Error("entry should be absent at 1000ms of a 1000ms TTL")
	}
}

func TestSetOverwrites(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.now)

	c.Set("skills:1", "rust", time.Second)
	clock.advance(900 * time.Millisecond)
	c.Set("skills:1", "go", time.Second)

	// The rewrite restarted the TTL
	clock.advance(500 * time.Millisecond)
	value, ok := c.Get("skills:1")
	if !ok {
		t.Fatal("expected hit after overwrite restarted the TTL")
	}
	if value != "go" {
		t.Errorf("expected go, got %v", value)
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	c := New()

	c.Set("portfolio:42", "a", time.Minute)
	c.Set("portfolio:43", "b", time.Minute)
	c.Set("user:42", "c", time.Minute)

	removed := c.Invalidate("portfolio:")
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	if _, ok := c.Get("portfolio:42"); ok {
		t.Error("portfolio:42 should be invalidated")
	}
	if _, ok := c.Get("user:42"); !ok {
		t.Error("user:42 should be unaffected by portfolio: invalidation")
	}
}

func TestClear(t *testing.T) {
	c := New()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Size())
	}
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.now)

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)

	clock.advance(2 * time.Second)
	removed := c.Sweep()

	if removed != 1 {
		t.Errorf("expected 1 swept entry, got %d", removed)
	}
	if c.Size() != 1 {
		t.Errorf("expected 1 remaining entry, got %d", c.Size())
	}
}

func TestStats(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.now)

	c.Set("portfolio:1", "alice", time.Minute)

	c.Get("portfolio:1") // hit
	c.Get("portfolio:1") // hit
	c.Get("missing")     // miss
	c.Get("missing-too") // miss

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 2 || stats.Misses != 2 {
		t.Errorf("expected 2 hits / 2 misses, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", stats.HitRate)
	}
	if stats.MemoryBytes <= 0 {
		t.Error("expected positive memory estimate")
	}
}

func TestExpiredGetCountsAsMiss(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(clock.now)

	c.Set("k", "v", time.Second)
	clock.advance(2 * time.Second)
	c.Get("k")

	stats := c.Stats()
	if stats.Misses != 1 {
		t.Errorf("expired read should count as miss, got %d misses", stats.Misses)
	}
	if stats.Entries != 0 {
		t.Error("expired entry should be evicted lazily on Get")
	}
}

func TestResetStats(t *testing.T) {
	c := New()

	c.Set("k", "v", time.Minute)
	c.Get("k")
	c.Get("absent")
	c.ResetStats()

	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("expected zeroed counters, got %d / %d", stats.Hits, stats.Misses)
	}
}
