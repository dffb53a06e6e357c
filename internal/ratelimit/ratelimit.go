// Package ratelimit throttles repeated failed login attempts per key.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxFailures = 5
	DefaultCooldown    = 15 * time.Minute
)

// ErrLocked is returned by Allow while a key is cooling down.
var ErrLocked = apperror.New(apperror.ErrTooManyRequests, "too many login attempts, try again later")

type Limiter interface {
	// Allow returns ErrLocked while key is cooling down.
	Allow(ctx context.Context, key string) error
	// Fail records one failed attempt.
	Fail(ctx context.Context, key string) error
	// Reset forgets failures after a successful attempt.
	Reset(ctx context.Context, key string) error
}

// Noop never throttles.
type Noop struct{}

func (Noop) Allow(context.Context, string) error { return nil }
func (Noop) Fail(context.Context, string) error  { return nil }
func (Noop) Reset(context.Context, string) error { return nil }

// RedisLimiter keeps a failure counter and a lock key per attempt key, both
// expiring after the cooldown.
type RedisLimiter struct {
	rdb         *redis.Client
	prefix      string
	maxFailures int64
	cooldown    time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		rdb:         rdb,
		prefix:      prefix,
		maxFailures: DefaultMaxFailures,
		cooldown:    DefaultCooldown,
	}
}

// Connect builds a client and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (l *RedisLimiter) failKey(key string) string { return l.prefix + ":fail:" + key }
func (l *RedisLimiter) lockKey(key string) string { return l.prefix + ":lock:" + key }

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	n, err := l.rdb.Exists(ctx, l.lockKey(key)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrLocked
	}
	return nil
}

// Fail bumps the counter and refreshes its expiry in one transaction, so
// the counter never outlives the cooldown after the last failure.
func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	fk := l.failKey(key)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fk)
	pipe.Expire(ctx, fk, l.cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if incr.Val() < l.maxFailures {
		return nil
	}

	pipe = l.rdb.TxPipeline()
	pipe.Set(ctx, l.lockKey(key), 1, l.cooldown)
	pipe.Del(ctx, fk)
	_, err := pipe.Exec(ctx)
	return err
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.failKey(key)).Err()
}

// Memory is an in-process Limiter with the same counting rules as
// RedisLimiter. The server uses it when redis is not configured.
type Memory struct {
	mu          sync.Mutex
	failures    map[string]int64
	locked      map[string]time.Time
	maxFailures int64
	cooldown    time.Duration
	now         func() time.Time
}

func NewMemory(maxFailures int64, cooldown time.Duration) *Memory {
	return &Memory{
		failures:    make(map[string]int64),
		locked:      make(map[string]time.Time),
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if until, ok := m.locked[key]; ok {
		if m.now().Before(until) {
			return ErrLocked
		}
		delete(m.locked, key)
	}
	return nil
}

func (m *Memory) Fail(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[key]++
	if m.failures[key] >= m.maxFailures {
		m.locked[key] = m.now().Add(m.cooldown)
		delete(m.failures, key)
	}
	return nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, key)
	return nil
}
