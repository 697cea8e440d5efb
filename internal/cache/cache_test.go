package cache

import (
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New[string](time.Minute, 0)
	defer c.Stop()

	c.Set("a", "1")
	v, ok := c.Get("a")
	if !ok || v != "1" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	c := New[string](time.Millisecond, 0)
	defer c.Stop()

	c.Set("a", "1")
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMaxEntriesEvictsClosestToExpiry(t *testing.T) {
	c := New[int](time.Hour, 2)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	count := 0
	for _, k := range []string{"a", "b", "c"} {
		if _, ok := c.Get(k); ok {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected exactly 2 surviving entries, got %d", count)
	}
}

func TestDeleteByPrefix(t *testing.T) {
	c := New[string](time.Minute, 0)
	defer c.Stop()

	c.Set("/inbox/a.txt", "x")
	c.Set("/inbox/b.txt", "y")
	c.Set("/archive/c.txt", "z")

	c.DeleteByPrefix("/inbox/")

	if _, ok := c.Get("/inbox/a.txt"); ok {
		t.Fatalf("expected /inbox/a.txt evicted")
	}
	if _, ok := c.Get("/archive/c.txt"); !ok {
		t.Fatalf("expected /archive/c.txt to survive")
	}
}
