package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexauth/nexauth/internal/cache"
)

// Limiter is a sliding-window counter keyed by source address. Callers
// record failures explicitly, so successful attempts never count against the
// window. State is best-effort: Redis when available, process memory
// otherwise, and any store error fails open.
type Limiter struct {
	name   string
	max    int
	window time.Duration

	mu    sync.Mutex
	local map[string][]time.Time
}

// New creates a limiter allowing max recorded failures per window
func New(name string, max int, window time.Duration) *Limiter {
	return &Limiter{
		name:   name,
		max:    max,
		window: window,
		local:  make(map[string][]time.Time),
	}
}

func (l *Limiter) redisKey(key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.name, key)
}

// Allow reports whether key is under the limit. When blocked it also returns
// how long until the oldest failure leaves the window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	now := time.Now()

	if cache.RedisClient != nil {
		return l.allowRedis(ctx, key, now)
	}
	return l.allowLocal(key, now)
}

// RecordFailure adds one failure mark for key
func (l *Limiter) RecordFailure(ctx context.Context, key string) {
	now := time.Now()

	if cache.RedisClient != nil {
		rkey := l.redisKey(key)
		member := fmt.Sprintf("%d", now.UnixNano())
		pipe := cache.RedisClient.TxPipeline()
		pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		pipe.Expire(ctx, rkey, l.window)
		if _, err := pipe.Exec(ctx); err != nil {
			slog.Warn("Failed to record rate-limit failure in Redis", "limiter", l.name, "error", err)
		}
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.local[key] = append(l.pruneLocked(key, now), now)
}

func (l *Limiter) allowRedis(ctx context.Context, key string, now time.Time) (bool, time.Duration) {
	rkey := l.redisKey(key)
	windowStart := now.Add(-l.window).UnixNano()

	pipe := cache.RedisClient.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, rkey)
	oldestCmd := pipe.ZRangeWithScores(ctx, rkey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Rate-limit check failed, allowing request", "limiter", l.name, "error", err)
		return true, 0
	}

	if countCmd.Val() < int64(l.max) {
		return true, 0
	}

	retryAfter := l.window
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		oldestAt := time.Unix(0, int64(oldest[0].Score))
		retryAfter = time.Until(oldestAt.Add(l.window))
		if retryAfter < 0 {
			retryAfter = 0
		}
	}
	return false, retryAfter
}

func (l *Limiter) allowLocal(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	marks := l.pruneLocked(key, now)
	l.local[key] = marks

	if len(marks) < l.max {
		return true, 0
	}

	retryAfter := time.Until(marks[0].Add(l.window))
	if retryAfter < 0 {
		retryAfter = 0
	}
	return false, retryAfter
}

// pruneLocked drops marks older than the window. Caller holds the mutex.
func (l *Limiter) pruneLocked(key string, now time.Time) []time.Time {
	marks := l.local[key]
	cutoff := now.Add(-l.window)
	kept := marks[:0]
	for _, t := range marks {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.local, key)
		return nil
	}
	return kept
}
