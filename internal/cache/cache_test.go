package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/abelbrown/trendwatch/internal/validate"
)

var (
	_ validate.FingerprintStore = (*FingerprintCache)(nil)
)

func newRedisTest(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	c, err := NewRedis(RedisConfig{Addr: mr.Addr()}, time.Hour)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Close()
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("Get() should miss an unknown key")
	}
	c.Set(ctx, "k", "v", 0)
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || got != "v" {
		t.Errorf("Get() = %q, %v, %v", got, ok, err)
	}
	c.Delete(ctx, "k")
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("deleted key still present")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "default", "a", 0)
	c.Set(ctx, "short", "b", time.Second)
	c.Set(ctx, "forever", "c", -1)

	now = now.Add(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("custom ttl should have expired")
	}
	if _, ok, _ := c.Get(ctx, "default"); !ok {
		t.Error("default ttl expired too early")
	}

	now = now.Add(time.Hour)
	c.removeExpired()
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want only the non-expiring entry", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "forever"); !ok {
		t.Error("negative ttl should never expire")
	}
}

func TestMemoryCacheCloseTwice(t *testing.T) {
	c := NewMemory(time.Minute)
	c.Close()
	c.Close()
}

func TestRedisCache(t *testing.T) {
	mr, c := newRedisTest(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("missing key: ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("trendwatch:k") {
		t.Error("key should carry the default prefix")
	}
	if ttl := mr.TTL("trendwatch:k"); ttl != time.Hour {
		t.Errorf("ttl = %v, want default hour", ttl)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || got != "v" {
		t.Errorf("Get() = %q, %v, %v", got, ok, err)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("key should expire")
	}
}

func TestRedisCacheClear(t *testing.T) {
	mr, c := newRedisTest(t)
	ctx := context.Background()

	mr.Set("other:key", "keep")
	c.Set(ctx, "a", "1", 0)
	c.Set(ctx, "b", "2", 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("trendwatch:a") || mr.Exists("trendwatch:b") {
		t.Error("prefixed keys should be removed")
	}
	if !mr.Exists("other:key") {
		t.Error("foreign keys must survive Clear")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedis(RedisConfig{Addr: addr}, time.Hour); err == nil {
		t.Error("expected ping failure")
	}
}

func TestFingerprintCache(t *testing.T) {
	tests := []struct {
		name string
		mk   func(t *testing.T) Cache
	}{
		{"memory", func(t *testing.T) Cache { return NewMemory(time.Hour) }},
		{"redis", func(t *testing.T) Cache { _, c := newRedisTest(t); return c }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fc := NewFingerprintCache(tt.mk(t), 72*time.Hour)
			defer fc.Close()

			if seen, err := fc.Seen(ctx, "abc"); seen || err != nil {
				t.Fatalf("Seen() = %v, %v", seen, err)
			}
			if err := fc.Remember(ctx, "abc", "trend-1"); err != nil {
				t.Fatal(err)
			}
			if seen, _ := fc.Seen(ctx, "abc"); !seen {
				t.Error("remembered fingerprint not seen")
			}
			id, ok, _ := fc.TrendFor(ctx, "abc")
			if !ok || id != "trend-1" {
				t.Errorf("TrendFor = %q, %v", id, ok)
			}
		})
	}
}

func TestFingerprintCacheRedisKey(t *testing.T) {
	mr, c := newRedisTest(t)
	fc := NewFingerprintCache(c, 72*time.Hour)
	fc.Remember(context.Background(), "deadbeef", "t")

	if !mr.Exists("trendwatch:fp:deadbeef") {
		t.Errorf("keys = %v", mr.Keys())
	}
	if ttl := mr.TTL("trendwatch:fp:deadbeef"); ttl != 72*time.Hour {
		t.Errorf("ttl = %v", ttl)
	}
}
