// Package ratelimit は固定ウィンドウ方式のレート制限を提供します。
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter はキーごとの試行回数を数え、上限超過を判定するインターフェースです。
type Limiter interface {
	// Allow はキーのカウンターを加算し、ウィンドウ内の上限以内なら true を返します。
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter は Redis のアトミックな INCR を使う実装です。
// カウンターをインスタンス間で共有できるため、水平スケールしても
// 同一キーの試行がまとめて数えられます。
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter は RedisLimiter を作成します。
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Allow はカウンターを加算し、上限以内かを返します。
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := "rate_limit:" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit transaction: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

var _ Limiter = (*MemoryLimiter)(nil)

// MemoryLimiter はプロセス内のカウンターを使う実装です。
// 単一インスタンス構成とテストで使用します。
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count       int
	windowStart time.Time
}

// NewMemoryLimiter は MemoryLimiter を作成します。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket)}
}

// Allow はカウンターを加算し、上限以内かを返します。
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) > window {
		b = &bucket{windowStart: now}
		l.buckets[key] = b
	}

	b.count++
	return b.count <= limit, nil
}
