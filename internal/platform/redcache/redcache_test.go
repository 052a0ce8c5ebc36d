package redcache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis cache tests")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := New(log, addr)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestJSONRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := "redcache_test:json"
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := c.SetJSON(ctx, key, payload{Name: "speakers", Count: 3}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got payload
	hit, err := c.GetJSON(ctx, key, &got)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !hit || got.Name != "speakers" || got.Count != 3 {
		t.Fatalf("unexpected hit=%v got=%+v", hit, got)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hit, err = c.GetJSON(ctx, key, &got)
	if err != nil || hit {
		t.Fatalf("expected miss after delete, hit=%v err=%v", hit, err)
	}
}

func TestSetNXClaimsOnce(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := "redcache_test:nx"
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	won, err := c.SetNX(ctx, key, time.Minute)
	if err != nil || !won {
		t.Fatalf("first claim: won=%v err=%v", won, err)
	}
	won, err = c.SetNX(ctx, key, time.Minute)
	if err != nil || won {
		t.Fatalf("second claim should lose: won=%v err=%v", won, err)
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	var out int
	hit, err := c.GetJSON(ctx, "k", &out)
	if err != nil || hit {
		t.Fatalf("nil cache GetJSON: hit=%v err=%v", hit, err)
	}
	if err := c.SetJSON(ctx, "k", 1, time.Minute); err != nil {
		t.Fatalf("nil cache SetJSON: %v", err)
	}
	won, err := c.SetNX(ctx, "k", time.Minute)
	if err != nil || !won {
		t.Fatalf("nil cache SetNX should win: won=%v err=%v", won, err)
	}
}
