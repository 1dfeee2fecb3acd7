package cache

import (
	"testing"
	"time"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3) // evicts b, the least recently used
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a should survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUZeroTTLNeverExpires(t *testing.T) {
	c := NewLRUCache[string](4, 0)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	now = now.Add(1000 * time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("zero ttl entry should not expire")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("nothing should be cleaned, got %d", n)
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", "1")
	c.Set("b", "2")
	now = now.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("expected 2 expired, got %d", n)
	}
	c.Set("c", "3")
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("c"); ok {
		t.Fatal("c should have expired")
	}
}

func TestLRUPurgeAndStats(t *testing.T) {
	c := NewLRUCache[int](8, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Get("zz")
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if n := c.Purge(); n != 2 || c.Size() != 0 {
		t.Fatalf("purge removed %d, size %d", n, c.Size())
	}
	c.Delete("missing")
}

func TestManagerSweep(t *testing.T) {
	c := NewLRUCache[int](4, time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	var reported int
	m := NewManager(func(n int) { reported += n })
	m.Register(c)
	if m.Sweep() != 0 || reported != 0 {
		t.Fatal("nothing should expire yet")
	}
	now = now.Add(time.Hour)
	if m.Sweep() != 1 || reported != 1 {
		t.Fatalf("expected one removal, reported %d", reported)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
}
