package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memLockStore struct {
	data map[string]string
}

func (m *memLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockExclusive(t *testing.T) {
	ctx := context.Background()
	store := &memLockStore{data: map[string]string{}}
	first, err := NewRedisLock(store, "ls:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "ls:lock:cron", time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: %v %v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second worker must not acquire a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("non-owner release: %v", err)
	}
	if _, ok := store.data["ls:lock:cron"]; !ok {
		t.Fatal("non-owner release must not delete the key")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected lock free after release")
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := &memLockStore{data: map[string]string{}}
	lock, _ := NewRedisLock(store, "ls:lock:cron", 0)
	if lock.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl")
	}
	if _, err := lock.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	delete(store.data, "ls:lock:cron")
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
	if _, err := NewRedisLock(nil, "k", time.Minute); err == nil {
		t.Fatal("expected nil client error")
	}
	if _, err := NewRedisLock(store, "", time.Minute); err == nil {
		t.Fatal("expected empty key error")
	}
}

func TestRedisLockReacquireByHolder(t *testing.T) {
	ctx := context.Background()
	store := &memLockStore{data: map[string]string{}}
	lock, _ := NewRedisLock(store, "ls:lock:cron", time.Minute)

	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("first acquire failed")
	}
	if ok, err := lock.Acquire(ctx); err != nil || !ok {
		t.Fatalf("holder should keep its lease: %v %v", ok, err)
	}

	// lease expired and another worker took it
	store.data["ls:lock:cron"] = "other-worker"
	if ok, _ := lock.Acquire(ctx); ok {
		t.Fatal("must not claim a lease owned by another worker")
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.data["ls:lock:cron"] != "other-worker" {
		t.Fatal("release deleted another worker's lease")
	}
}
