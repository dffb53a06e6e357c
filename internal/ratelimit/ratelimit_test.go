package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_LocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3, time.Minute)

	for i := 0; i < 2; i++ {
		require.NoError(t, m.Fail(ctx, "a@gmail.com"))
		require.NoError(t, m.Allow(ctx, "a@gmail.com"))
	}
	require.NoError(t, m.Fail(ctx, "a@gmail.com"))

	err := m.Allow(ctx, "a@gmail.com")
	assert.ErrorIs(t, err, apperror.ErrTooManyRequests)
	assert.Equal(t, 429, apperror.Status(err))

	assert.NoError(t, m.Allow(ctx, "other@gmail.com"))
}

func TestMemory_UnlocksAfterCooldown(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(1, 15*time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Fail(ctx, "k"))
	assert.Error(t, m.Allow(ctx, "k"))

	now = now.Add(15*time.Minute + time.Second)
	assert.NoError(t, m.Allow(ctx, "k"))
}

func TestMemory_ResetClearsFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Minute)

	require.NoError(t, m.Fail(ctx, "k"))
	require.NoError(t, m.Reset(ctx, "k"))
	require.NoError(t, m.Fail(ctx, "k"))
	assert.NoError(t, m.Allow(ctx, "k"))
}

func TestRedisLimiter_Keys(t *testing.T) {
	l := NewRedisLimiter(nil, "login")
	assert.Equal(t, "login:fail:a@b.c", l.failKey("a@b.c"))
	assert.Equal(t, "login:lock:a@b.c", l.lockKey("a@b.c"))
	assert.Equal(t, int64(DefaultMaxFailures), l.maxFailures)
}

func TestNoop_NeverThrottles(t *testing.T) {
	var l Limiter = Noop{}
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Fail(context.Background(), "k"))
	}
	assert.NoError(t, l.Allow(context.Background(), "k"))
}

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLimiter(rdb, "login"), mr
}

func TestRedisLimiter_LocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)

	for i := 0; i < DefaultMaxFailures-1; i++ {
		require.NoError(t, l.Fail(ctx, "a@mail.ru"))
		require.NoError(t, l.Allow(ctx, "a@mail.ru"))
	}
	assert.Equal(t, DefaultCooldown, mr.TTL("login:fail:a@mail.ru"), "counter must expire")

	require.NoError(t, l.Fail(ctx, "a@mail.ru"))
	err := l.Allow(ctx, "a@mail.ru")
	assert.ErrorIs(t, err, apperror.ErrTooManyRequests)
	assert.Equal(t, 429, apperror.Status(err))
	assert.Equal(t, DefaultCooldown, mr.TTL("login:lock:a@mail.ru"))
	assert.False(t, mr.Exists("login:fail:a@mail.ru"), "counter is cleared once the lock is set")

	assert.NoError(t, l.Allow(ctx, "b@mail.ru"))

	mr.FastForward(DefaultCooldown + time.Second)
	assert.NoError(t, l.Allow(ctx, "a@mail.ru"))
}

func TestRedisLimiter_ResetForgetsFailures(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)

	for i := 0; i < DefaultMaxFailures-1; i++ {
		require.NoError(t, l.Fail(ctx, "k"))
	}
	require.NoError(t, l.Reset(ctx, "k"))
	assert.False(t, mr.Exists("login:fail:k"))

	require.NoError(t, l.Fail(ctx, "k"))
	assert.NoError(t, l.Allow(ctx, "k"))
}

func TestRedisLimiter_ServerDownIsNotALock(t *testing.T) {
	l, mr := newRedisLimiter(t)
	mr.Close()

	err := l.Allow(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrTooManyRequests))
	assert.Error(t, l.Fail(context.Background(), "k"))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("pw")

	rdb, err := Connect(context.Background(), mr.Addr(), "pw")
	require.NoError(t, err)
	rdb.Close()

	_, err = Connect(context.Background(), mr.Addr(), "wrong")
	assert.Error(t, err)
}
