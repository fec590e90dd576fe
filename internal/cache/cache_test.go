package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("summary", 42)

	v, ok := c.Get("summary")
	if !ok || v.(int) != 42 {
		t.Fatalf("got %v/%v, want 42/true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("unexpected hit for missing key")
	}
}

func TestEntriesExpire(t *testing.T) {
	c := New(time.Minute, 10)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("entry expired too early")
	}
	now = now.Add(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry survived past TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not dropped on read")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("trend:7", 1)
	c.Set("trend:30", 2)
	c.Set("summary", 3)

	if n := c.InvalidatePrefix("trend:"); n != 2 {
		t.Fatalf("invalidated %d, want 2", n)
	}
	if _, ok := c.Get("trend:7"); ok {
		t.Fatalf("trend entry survived invalidation")
	}
	if _, ok := c.Get("summary"); !ok {
		t.Fatalf("unrelated entry was dropped")
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len = %d after clear, want 0", c.Len())
	}
}

func TestSetEvictsWhenFull(t *testing.T) {
	c := New(time.Minute, 3)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() > 3 {
		t.Fatalf("len = %d, want <= 3", c.Len())
	}
}

func TestSetSweepsExpiredBeforeEvicting(t *testing.T) {
	c := New(time.Minute, 2)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("old1", 1)
	c.Set("old2", 2)
	now = now.Add(2 * time.Minute)
	c.Set("fresh", 3)

	if _, ok := c.Get("fresh"); !ok {
		t.Fatalf("fresh entry missing")
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1 after sweep", c.Len())
	}
}
