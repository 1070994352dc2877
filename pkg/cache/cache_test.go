package cache

import (
	"context"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	_, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache must never store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "model:abc", []byte("payload"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "model:abc")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit || string(data) != "payload" {
		t.Errorf("Get = %q hit=%v, want payload hit", data, hit)
	}

	if err := c.Delete(ctx, "model:abc"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "model:abc"); hit {
		t.Error("entry survived Delete")
	}

	// Deleting a missing key is fine.
	if err := c.Delete(ctx, "model:abc"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry must be a miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	h3 := Hash([]byte("world"))
	if h1 != h2 {
		t.Error("Hash must be deterministic")
	}
	if h1 == h3 {
		t.Error("different inputs must hash differently")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}
}

func TestKeyer(t *testing.T) {
	k := Keyer{}

	m1 := k.ModelKey("h1", 4.16, 1.0)
	m2 := k.ModelKey("h1", 12.47, 1.0)
	if m1 == m2 {
		t.Error("different bases must produce different model keys")
	}

	s1 := k.SolveKey("mh", "c1")
	s2 := k.SolveKey("mh", "c2")
	if s1 == s2 {
		t.Error("different load cases must produce different solve keys")
	}

	scoped := Keyer{Prefix: "tenant:"}
	if scoped.ModelKey("h1", 4.16, 1.0) == m1 {
		t.Error("prefix must namespace keys")
	}
}
