package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestLimiter(t *testing.T, limit int) (*miniredis.Miniredis, *FixedWindowLimiter) {
	t.Helper()
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "plataforma:test", limit, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return redis, limiter
}

func TestFixedWindowBlocksOverQuota(t *testing.T) {
	_, limiter := newTestLimiter(t, 2)
	key := "/api/tables/pi_activos/csv|198.51.100.10"
	if !limiter.Allow(key) {
		t.Fatal("first request within quota must pass")
	}
	if !limiter.Allow(key) {
		t.Fatal("second request within quota must pass")
	}
	if limiter.Allow(key) {
		t.Fatal("request over quota must be blocked")
	}
	if !limiter.Allow("/api/tables/pi_activos/csv|203.0.113.5") {
		t.Fatal("a different key carries its own window")
	}
}

func TestFixedWindowFailsClosed(t *testing.T) {
	redis, limiter := newTestLimiter(t, 1)
	redis.Close()
	if limiter.Allow("any") {
		t.Fatal("redis failures must deny, not wave through")
	}
}

func TestFixedWindowRequiresRedisAddr(t *testing.T) {
	if limiter, err := NewRedisFixedWindowLimiter("", "", "plataforma:test", 1, time.Second); err == nil || limiter != nil {
		t.Fatal("expected constructor error for empty redis addr")
	}
}
