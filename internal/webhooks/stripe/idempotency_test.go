package stripewebhook

import (
	"context"
	"testing"
	"time"
)

type memoryIdempotencyStore struct {
	keys map[string]string
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return m.keys[key], nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.keys[key] = value.(string)
	return nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "ls:idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func TestIdempotencyGuard(t *testing.T) {
	store := &memoryIdempotencyStore{keys: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	dup, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil || dup {
		t.Fatalf("first delivery should be new: dup=%v err=%v", dup, err)
	}
	marked, ok := store.keys["ls:idempotency:stripe-webhook:evt_1"]
	if !ok {
		t.Fatal("expected key marked")
	}
	if _, err := time.Parse(time.RFC3339, marked); err != nil {
		t.Fatalf("expected first-seen timestamp, got %q", marked)
	}
	dup, _ = guard.CheckAndMark(ctx, "evt_1")
	if !dup {
		t.Fatal("redelivery should be a duplicate")
	}
	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	dup, _ = guard.CheckAndMark(ctx, "evt_1")
	if dup {
		t.Fatal("expected key forgotten after delete")
	}
	if _, err := guard.CheckAndMark(ctx, "  "); err == nil {
		t.Fatal("expected error for empty event id")
	}
}

func TestNewIdempotencyGuardValidates(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "s"); err == nil {
		t.Fatal("expected nil store error")
	}
	store := &memoryIdempotencyStore{keys: map[string]string{}}
	if _, err := NewIdempotencyGuard(store, -time.Second, "s"); err == nil {
		t.Fatal("expected ttl error")
	}
	if _, err := NewIdempotencyGuard(store, time.Hour, ""); err == nil {
		t.Fatal("expected scope error")
	}
}

func TestIdempotencyGuardDefaultTTL(t *testing.T) {
	guard, err := NewIdempotencyGuard(&memoryIdempotencyStore{keys: map[string]string{}}, 0, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if guard.ttl != DefaultEventTTL {
		t.Fatalf("expected default ttl, got %s", guard.ttl)
	}
}
