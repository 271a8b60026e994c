package ratelimit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newLimiter(t *testing.T, opts ...Option) (*miniredis.Miniredis, *TokenBucketLimiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewTokenBucketLimiter(rdb, opts...)
}

func TestAllowDisabledBucket(t *testing.T) {
	_, lim := newLimiter(t)
	dec, err := lim.Allow(context.Background(), "create_execution", "user-1", Bucket{})
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allowed when bucket disabled")
	}
}

func TestNilClientAllows(t *testing.T) {
	lim := NewTokenBucketLimiter(nil)
	dec, err := lim.Allow(context.Background(), "admin", "x", Bucket{RequestsPerMinute: 1, BurstSize: 1})
	if err != nil || !dec.Allowed {
		t.Fatalf("expected allow without redis, got %+v %v", dec, err)
	}
}

func TestBlocksAfterBurstAndRefills(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, lim := newLimiter(t, WithClock(clock.now))
	bucket := Bucket{RequestsPerMinute: 60, BurstSize: 1}
	ctx := context.Background()

	if dec, err := lim.Allow(ctx, "create_execution", "user-1", bucket); err != nil || !dec.Allowed {
		t.Fatalf("expected first request allowed, got %+v %v", dec, err)
	}
	dec, err := lim.Allow(ctx, "create_execution", "user-1", bucket)
	if err != nil {
		t.Fatalf("allow 2: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected second request to be rate limited")
	}
	if dec.RetryAfter != time.Second {
		t.Fatalf("expected 1s retry, got %s", dec.RetryAfter)
	}

	if other, _ := lim.Allow(ctx, "create_execution", "user-2", bucket); !other.Allowed {
		t.Fatalf("expected independent bucket per subject")
	}

	clock.advance(time.Second)
	if dec, _ := lim.Allow(ctx, "create_execution", "user-1", bucket); !dec.Allowed {
		t.Fatalf("expected refill after one second")
	}
}

func TestKeysArePrefixedAndHashed(t *testing.T) {
	mr, lim := newLimiter(t, WithKeyPrefix("stage:rl:"))
	if _, err := lim.Allow(context.Background(), "admin", "secret-token", Bucket{RequestsPerMinute: 10, BurstSize: 5}); err != nil {
		t.Fatalf("allow: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one key, got %v", keys)
	}
	if !strings.HasPrefix(keys[0], "stage:rl:admin:") {
		t.Fatalf("unexpected key %q", keys[0])
	}
	if strings.Contains(keys[0], "secret-token") {
		t.Fatalf("subject leaked into key %q", keys[0])
	}
}

func TestComputeTTLClamped(t *testing.T) {
	if got := computeTTLMS(100, 1); got != (30 * time.Second).Milliseconds() {
		t.Fatalf("expected floor, got %d", got)
	}
	if got := computeTTLMS(0.001, 1000); got != time.Hour.Milliseconds() {
		t.Fatalf("expected ceiling, got %d", got)
	}
}
