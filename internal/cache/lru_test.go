// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestLRU(capacity int, ttl time.Duration) (*LRU[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string]("test", capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRU_BasicOperations(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)

	c.Set("key1", "value1")
	value, ok := c.Get("key1")
	if !ok {
		t.Fatal("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, ok := c.Get("key2"); ok {
		t.Error("Expected key2 to not exist")
	}

	c.Set("key1", "updated")
	if value, _ := c.Get("key1"); value != "updated" {
		t.Errorf("Expected updated, got %v", value)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_Expiration(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)

	c.Set("key1", "value1")
	c.SetWithTTL("key2", "value2", time.Hour)

	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("key1"); ok {
		t.Error("Expected key1 to be expired")
	}
	if _, ok := c.Get("key2"); !ok {
		t.Error("Expected key2 with custom TTL to survive")
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(3, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	// Touch "a" so "b" becomes the oldest.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("d", "4")

	if _, ok := c.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("Expected %s to remain", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Delete("key1")
	c.Delete("missing")

	if _, ok := c.Get("key1"); ok {
		t.Error("Expected key1 to be deleted")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	if _, ok := c.Get("key2"); ok {
		t.Error("Expected key2 to be cleared")
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("short%d", i), "v")
	}
	c.SetWithTTL("long", "v", time.Hour)

	clock.Advance(5 * time.Minute)

	if removed := c.CleanupExpired(); removed != 5 {
		t.Errorf("CleanupExpired() = %d, want 5", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_HitRate(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)

	if c.HitRate() != 0 {
		t.Error("empty cache hit rate should be 0")
	}

	c.Set("key1", "value1")
	c.Get("key1")
	c.Get("key1")
	c.Get("key1")
	c.Get("nope")

	if rate := c.HitRate(); rate != 75 {
		t.Errorf("HitRate() = %v, want 75", rate)
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c, _ := newTestLRU(50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%80)
				c.Set(key, "v")
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
