package cache

import (
	"testing"
	"time"
)

func TestSetGetRoundTripUnscoped(t *testing.T) {
	c := New(0, 0, nil)
	if err := c.Set("k1", []byte("hello"), "", nil, 0); err != nil {
		t.Fatal(err)
	}
	v, ok := c.Get("k1", "")
	if !ok || string(v) != "hello" {
		t.Fatalf("Get = %q, %v; want hello, true", v, ok)
	}
}

func TestSetGetRoundTripScoped(t *testing.T) {
	c := New(0, 0, []byte("master-key-material"))
	if err := c.Set("k1", []byte("secret"), "tenant-a", nil, 0); err != nil {
		t.Fatal(err)
	}
	v, ok := c.Get("k1", "tenant-a")
	if !ok || string(v) != "secret" {
		t.Fatalf("Get = %q, %v; want secret, true", v, ok)
	}
}

func TestGetScopeMismatchIsMiss(t *testing.T) {
	c := New(0, 0, []byte("master-key-material"))
	if err := c.Set("k1", []byte("secret"), "tenant-a", nil, 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k1", "tenant-b"); ok {
		t.Fatal("expected scope mismatch to be a cache miss")
	}
}

func TestGetMissingKey(t *testing.T) {
	c := New(0, 0, nil)
	if _, ok := c.Get("nope", ""); ok {
		t.Fatal("expected miss on absent key")
	}
}

func TestEvictionByEntryCount(t *testing.T) {
	c := New(0, 2, nil)
	c.Set("a", []byte("1"), "", nil, 0)
	c.Set("b", []byte("2"), "", nil, 0)
	c.Set("c", []byte("3"), "", nil, 0)
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a", ""); ok {
		t.Fatal("expected LRU entry 'a' to be evicted")
	}
	if _, ok := c.Get("c", ""); !ok {
		t.Fatal("expected MRU entry 'c' to survive")
	}
}

func TestEvictionBySizeBytes(t *testing.T) {
	// spec.md §3: Size = len(value) + 96 B constant + 64 B per tag, so
	// each 5-byte value costs 101 bytes; budget fits one entry, not two.
	c := New(150, 0, nil)
	c.Set("a", []byte("12345"), "", nil, 0)
	c.Set("b", []byte("12345"), "", nil, 0) // pushes over budget, evicts a
	if _, ok := c.Get("a", ""); ok {
		t.Fatal("expected 'a' evicted once over size budget")
	}
	if _, ok := c.Get("b", ""); !ok {
		t.Fatal("expected 'b' to survive")
	}
}

func TestCloseZeroesMasterKey(t *testing.T) {
	master := []byte("master-key-material")
	c := New(0, 0, master)
	c.Close()
	for i, b := range master {
		if b != 0 {
			t.Fatalf("master key byte %d not zeroed after Close", i)
		}
	}
}

func TestLRUPromotionOnGet(t *testing.T) {
	c := New(0, 2, nil)
	c.Set("a", []byte("1"), "", nil, 0)
	c.Set("b", []byte("2"), "", nil, 0)
	c.Get("a", "") // promotes a to MRU
	c.Set("c", []byte("3"), "", nil, 0) // evicts LRU, now b
	if _, ok := c.Get("b", ""); ok {
		t.Fatal("expected 'b' evicted as LRU after 'a' was promoted")
	}
	if _, ok := c.Get("a", ""); !ok {
		t.Fatal("expected 'a' to survive after promotion")
	}
}

func TestEvictByTag(t *testing.T) {
	c := New(0, 0, nil)
	c.Set("a", []byte("1"), "", []string{"t1"}, 0)
	c.Set("b", []byte("2"), "", []string{"t1", "t2"}, 0)
	c.Set("c", []byte("3"), "", []string{"t2"}, 0)
	n := c.EvictByTag("t1")
	if n != 2 {
		t.Fatalf("EvictByTag = %d, want 2", n)
	}
	if _, ok := c.Get("c", ""); !ok {
		t.Fatal("expected 'c' (tag t2 only) to survive t1 eviction")
	}
}

func TestEvictByScope(t *testing.T) {
	c := New(0, 0, []byte("master"))
	c.Set("a", []byte("1"), "scope-a", nil, 0)
	c.Set("b", []byte("2"), "scope-b", nil, 0)
	n := c.EvictByScope("scope-a")
	if n != 1 {
		t.Fatalf("EvictByScope = %d, want 1", n)
	}
	if _, ok := c.Get("b", "scope-b"); !ok {
		t.Fatal("expected scope-b entry to survive")
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	c := New(0, 0, nil)
	c.Set("a", []byte("1"), "", nil, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a", ""); ok {
		t.Fatal("expected sliding-window expiry to produce a miss")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	c := New(0, 0, nil)
	c.Set("a", []byte("1"), "", nil, 10*time.Millisecond)
	c.Set("b", []byte("2"), "", nil, 0)
	time.Sleep(20 * time.Millisecond)
	n := c.Sweep()
	if n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestSetReplacesExistingEntry(t *testing.T) {
	c := New(0, 0, nil)
	c.Set("a", []byte("1"), "", []string{"old"}, 0)
	c.Set("a", []byte("2"), "", []string{"new"}, 0)
	v, _ := c.Get("a", "")
	if string(v) != "2" {
		t.Fatalf("Get = %q, want 2", v)
	}
	if n := c.EvictByTag("old"); n != 0 {
		t.Fatalf("expected stale tag 'old' unregistered, EvictByTag returned %d", n)
	}
}
