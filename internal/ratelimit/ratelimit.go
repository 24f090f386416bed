// Package ratelimit provides fixed-window request limiting backed by Redis or process memory.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/school-portal/portal-backend/internal/config"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	Count   int64         // Hits in the current window, including this one.
	ResetIn time.Duration // Time until the window rolls over.
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (Decision, error)
	Close() error
}

func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

func decide(count, limit int64, now time.Time, window time.Duration) Decision {
	reset := windowStart(now, window).Add(window).Sub(now)
	return Decision{Allowed: limit <= 0 || count <= limit, Count: count, ResetIn: reset}
}

// RedisLimiter shares counters across instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis connects to the configured Redis and verifies it answers PING.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisLimiter, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("ratelimit: empty redis addr")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: ping redis %s: %w", addr, errPing)
	}
	return &RedisLimiter{client: client, prefix: "portal:ratelimit", now: time.Now}, nil
}

// Allow increments the counter for key in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (Decision, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := l.now()
	bucket := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart(now, window).Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window+time.Second)
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: redis incr: %w", errExec)
	}
	return decide(incr.Val(), limit, now, window), nil
}

// Close releases the Redis connection pool.
func (l *RedisLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

// MemoryLimiter keeps counters in process memory. Counters are not shared between instances.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]memoryBucket
	now     func() time.Time
}

type memoryBucket struct {
	start time.Time
	count int64
}

// maxIdleBuckets triggers a sweep of expired buckets.
const maxIdleBuckets = 4096

// NewMemory builds an empty MemoryLimiter.
func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]memoryBucket), now: time.Now}
}

// Allow increments the counter for key in the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (Decision, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := l.now()
	start := windowStart(now, window)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buckets) >= maxIdleBuckets {
		for k, b := range l.buckets {
			if b.start.Before(start) {
				delete(l.buckets, k)
			}
		}
	}
	b := l.buckets[key]
	if !b.start.Equal(start) {
		b = memoryBucket{start: start}
	}
	b.count++
	l.buckets[key] = b
	return decide(b.count, limit, now, window), nil
}

// Close is a no-op.
func (l *MemoryLimiter) Close() error { return nil }
