package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mapStore struct {
	vals   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMapStore() *mapStore {
	return &mapStore{vals: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mapStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, taken := m.vals[key]; taken {
		return false, nil
	}
	m.vals[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *mapStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.vals[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mapStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.vals, k)
	}
	return nil
}

func TestLockKey(t *testing.T) {
	if got := LockKey("ty:cron:lock", "prod"); got != "ty:cron:lock:prod" {
		t.Fatalf("got %q", got)
	}
	if got := LockKey("ty:cron:lock", ""); got != "ty:cron:lock:local" {
		t.Fatalf("got %q", got)
	}
}

func TestRedisLockSingleHolder(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	a, err := NewRedisLock(store, "ty:cron:lock:dev", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	b, _ := NewRedisLock(store, "ty:cron:lock:dev", 0)

	if won, err := a.Acquire(ctx); err != nil || !won {
		t.Fatalf("a.Acquire = %v, %v", won, err)
	}
	if store.ttls["ty:cron:lock:dev"] != defaultLockTTL {
		t.Fatalf("ttl = %s", store.ttls["ty:cron:lock:dev"])
	}
	if won, _ := b.Acquire(ctx); won {
		t.Fatal("b acquired a held lock")
	}
	if err := b.Release(ctx); err != nil {
		t.Fatalf("b.Release: %v", err)
	}
	if _, ok := store.vals["ty:cron:lock:dev"]; !ok {
		t.Fatal("non-holder release dropped the key")
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("a.Release: %v", err)
	}
	if won, _ := b.Acquire(ctx); !won {
		t.Fatal("b could not acquire after a released")
	}
}

func TestRedisLockKeepsForeignLease(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if _, err := lock.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// lease expired and another worker took it
	store.vals["k"] = "someone-else"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.vals["k"] != "someone-else" {
		t.Fatal("released a lease owned by another worker")
	}
}

func TestRedisLockReleaseReadError(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	_, _ = lock.Acquire(ctx)
	store.getErr = errors.New("connection reset")
	if err := lock.Release(ctx); err == nil {
		t.Fatal("expected read error")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected nil store error")
	}
	if _, err := NewRedisLock(newMapStore(), "", 0); err == nil {
		t.Fatal("expected empty key error")
	}
}
