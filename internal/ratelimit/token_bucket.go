// Package ratelimit throttles API callers with a Redis-backed token bucket.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "taskdeck:rl"

type Bucket struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

func (b Bucket) Enabled() bool {
	return b.RequestsPerMinute > 0 && b.BurstSize > 0
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, scope string, subject string, bucket Bucket) (Decision, error)
}

type TokenBucketLimiter struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

type Option func(*TokenBucketLimiter)

// WithKeyPrefix namespaces bucket keys, e.g. per environment.
func WithKeyPrefix(p string) Option {
	return func(l *TokenBucketLimiter) {
		if p = strings.TrimSuffix(strings.TrimSpace(p), ":"); p != "" {
			l.prefix = p
		}
	}
}

// WithClock replaces time.Now; bucket refill is computed from it.
func WithClock(now func() time.Time) Option {
	return func(l *TokenBucketLimiter) { l.now = now }
}

// NewTokenBucketLimiter returns a limiter storing state in rdb. A nil client
// yields a limiter that allows everything.
func NewTokenBucketLimiter(rdb *redis.Client, opts ...Option) *TokenBucketLimiter {
	l := &TokenBucketLimiter{rdb: rdb, prefix: defaultKeyPrefix, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// The script refills by elapsed time, takes one token when available and
// reports the seconds until the next token otherwise.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now
if now < ts then ts = now end

tokens = math.min(capacity, tokens + (now - ts) * rate / 1000.0)

local allowed = 0
local wait = 0
if tokens >= 1.0 then
  allowed = 1
  tokens = tokens - 1.0
elseif rate > 0 then
  wait = math.max(1, math.ceil((1.0 - tokens) / rate))
else
  wait = 60
end

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, ttl_ms)
return {allowed, wait}
`)

func (l *TokenBucketLimiter) Allow(ctx context.Context, scope string, subject string, bucket Bucket) (Decision, error) {
	if l == nil || l.rdb == nil || !bucket.Enabled() {
		return Decision{Allowed: true}, nil
	}
	key := l.key(scope, subject)

	ratePerSec := float64(bucket.RequestsPerMinute) / 60.0
	capacity := float64(bucket.BurstSize)
	nowMS := l.now().UTC().UnixMilli()

	res, err := tokenBucketScript.Run(ctx, l.rdb, []string{key}, ratePerSec, capacity, nowMS, computeTTLMS(ratePerSec, capacity)).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit %s: %w", scope, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return Decision{}, fmt.Errorf("unexpected redis ratelimit response: %T", res)
	}

	allowed, _ := vals[0].(int64)
	retryAfterS, _ := vals[1].(int64)
	if allowed == 1 {
		return Decision{Allowed: true}, nil
	}
	if retryAfterS <= 0 {
		retryAfterS = 1
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(retryAfterS) * time.Second}, nil
}

// Subjects are hashed so bearer tokens never land in Redis keys.
func (l *TokenBucketLimiter) key(scope, subject string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "unknown"
	}
	sum := sha256.Sum256([]byte(subject))
	return fmt.Sprintf("%s:%s:%s", l.prefix, scope, hex.EncodeToString(sum[:]))
}

// computeTTLMS keeps idle buckets around for two full refills, clamped to
// [30s, 1h].
func computeTTLMS(ratePerSec float64, capacity float64) int64 {
	const minTTL = 30 * time.Second
	const maxTTL = 1 * time.Hour

	if ratePerSec <= 0 || capacity <= 0 {
		return (2 * time.Minute).Milliseconds()
	}
	ttl := time.Duration(math.Ceil(capacity/ratePerSec*2.0))*time.Second + 5*time.Second
	if ttl < minTTL {
		ttl = minTTL
	}
	if ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl.Milliseconds()
}
