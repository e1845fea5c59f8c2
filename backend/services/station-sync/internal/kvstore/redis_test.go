package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBackend(t *testing.T, prefix string) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisBackend(client, prefix)
}

func TestRedisBackendPrefixesKeys(t *testing.T) {
	ctx := context.Background()
	mr, backend := newRedisBackend(t, "chargemap:")

	if err := backend.Write(ctx, "ev_favorites", []byte(`{"ids":["st-1"]}`), 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := mr.Get("chargemap:ev_favorites")
	if err != nil || raw != `{"ids":["st-1"]}` {
		t.Fatalf("expected prefixed key in redis, got %q %v", raw, err)
	}
	if ttl := mr.TTL("chargemap:ev_favorites"); ttl != 0 {
		t.Fatalf("zero ttl must not expire, got %v", ttl)
	}

	data, err := backend.Read(ctx, "ev_favorites")
	if err != nil || string(data) != `{"ids":["st-1"]}` {
		t.Fatalf("read: %q %v", data, err)
	}

	if err := backend.Delete(ctx, "ev_favorites"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := backend.Read(ctx, "ev_favorites"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := backend.Delete(ctx, "ev_favorites"); err != nil {
		t.Fatalf("deleting a missing key must succeed: %v", err)
	}
}

func TestRedisBackendExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, backend := newRedisBackend(t, "ev:")

	if err := backend.Write(ctx, "snapshot", []byte("[]"), time.Minute); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ttl := mr.TTL("ev:snapshot"); ttl != time.Minute {
		t.Fatalf("expected redis ttl of 1m, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, err := backend.Read(ctx, "snapshot"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired key to be missing, got %v", err)
	}
}

func TestRedisBackendReportsServerErrors(t *testing.T) {
	mr, backend := newRedisBackend(t, "ev:")
	mr.SetError("LOADING")

	_, err := backend.Read(context.Background(), "snapshot")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a server error distinct from a miss, got %v", err)
	}
}
