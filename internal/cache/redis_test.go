package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNilCacheBypasses(t *testing.T) {
	var r *Redis
	ctx := context.Background()

	if err := r.SetJSON(ctx, "k", map[string]int{"a": 1}, 0); err != nil {
		t.Fatalf("SetJSON on nil cache: %v", err)
	}
	var out map[string]int
	found, err := r.GetJSON(ctx, "k", &out)
	if err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}
	if err := r.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete on nil cache: %v", err)
	}
	if err := r.Ping(ctx); err == nil {
		t.Fatal("Ping on nil cache should report unavailable")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil cache: %v", err)
	}
}

func TestUnreachableRedisBypasses(t *testing.T) {
	// Port 1 is never a Redis server; NewRedis must fall back instead of failing.
	r := NewRedis(context.Background(), Options{Addr: "127.0.0.1:1", TTL: time.Minute}, nil)
	if !r.isUnavailable() {
		t.Fatal("expected bypassing cache")
	}
	var out string
	if found, err := r.GetJSON(context.Background(), "missing", &out); found || err != nil {
		t.Fatalf("expected silent miss, got found=%v err=%v", found, err)
	}
}

func TestNewWithClientDefaultsTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	r := NewWithClient(client, 0, nil)
	if r.ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", r.ttl)
	}
}
