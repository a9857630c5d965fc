package devcode

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(5 * time.Minute)

	store.Put(ctx, "tenant-1", "a@example.com", "abc123", expiresAt)

	code, ok := store.Get(ctx, "tenant-1", "a@example.com")
	if !ok || code != "abc123" {
		t.Fatalf("Get = (%q, %v), want (abc123, true)", code, ok)
	}
	if _, ok := store.Get(ctx, "tenant-2", "a@example.com"); ok {
		t.Fatal("Get must be tenant-scoped")
	}
	if _, ok := store.Get(ctx, "tenant-1", "b@example.com"); ok {
		t.Fatal("Get must not return codes for other emails")
	}
}

func TestMemoryStorePutReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(5 * time.Minute)

	store.Put(ctx, "tenant-1", "a@example.com", "first", expiresAt)
	store.Put(ctx, "tenant-1", "a@example.com", "second", expiresAt)

	code, ok := store.Get(ctx, "tenant-1", "a@example.com")
	if !ok || code != "second" {
		t.Fatalf("Get = (%q, %v), want (second, true)", code, ok)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "tenant-1", "a@example.com", "abc123", time.Now().UTC().Add(50*time.Millisecond))
	store.nowF = func() time.Time { return time.Now().UTC().Add(time.Minute) }

	if _, ok := store.Get(ctx, "tenant-1", "a@example.com"); ok {
		t.Fatal("expired code must not be returned")
	}
	// The expired entry is dropped, not kept around.
	store.mu.RLock()
	defer store.mu.RUnlock()
	if len(store.m) != 0 {
		t.Fatalf("expired entry not deleted, %d left", len(store.m))
	}
}

func TestMemoryStoreClockAdvances(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Real clock: the store must observe time passing after construction.
	store.Put(ctx, "tenant-1", "a@example.com", "abc123", time.Now().UTC().Add(10*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	if code, ok := store.Get(ctx, "tenant-1", "a@example.com"); ok {
		t.Fatalf("expired code still returned: %q", code)
	}
}

func TestNoopStore(t *testing.T) {
	var s Store = Noop{}
	s.Put(context.Background(), "tenant-1", "a@example.com", "abc123", time.Now().Add(time.Minute))
	if _, ok := s.Get(context.Background(), "tenant-1", "a@example.com"); ok {
		t.Fatal("noop store must never return codes")
	}
}
