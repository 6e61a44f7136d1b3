package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"leaddesk_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	calls   int
	removed int
	err     error
}

func (c *countingCleaner) CleanupExpired(context.Context) (int, error) {
	c.calls++
	return c.removed, c.err
}

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerGrantsOneLease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	ok, err := locker.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locker.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second caller must not get the lease")

	mr.FastForward(2 * time.Minute)
	ok, err = locker.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lease expires")
}

func TestDiscountCleanupRunsOncePerLease(t *testing.T) {
	locker, mr := newTestLocker(t)
	first := &countingCleaner{removed: 2}
	second := &countingCleaner{}

	a := NewDiscountCleanup(first, locker, logger.Nop(), time.Minute)
	b := NewDiscountCleanup(second, locker, logger.Nop(), time.Minute)

	assert.True(t, a.cleanup(context.Background()))
	assert.False(t, b.cleanup(context.Background()))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)

	mr.FastForward(time.Minute)
	assert.True(t, b.cleanup(context.Background()))
	assert.Equal(t, 1, second.calls)
}

func TestDiscountCleanupWithoutLocker(t *testing.T) {
	cleaner := &countingCleaner{removed: 1, err: errors.New("package x: boom")}
	c := NewDiscountCleanup(cleaner, nil, logger.Nop(), 0)

	assert.Equal(t, defaultDiscountCleanupInterval, c.interval)
	assert.True(t, c.cleanup(context.Background()))
	assert.Equal(t, 1, cleaner.calls)
}

func TestDiscountCleanupLockErrorSkipsPass(t *testing.T) {
	locker, mr := newTestLocker(t)
	mr.Close()
	cleaner := &countingCleaner{}
	c := NewDiscountCleanup(cleaner, locker, logger.Nop(), time.Minute)

	assert.False(t, c.cleanup(context.Background()))
	assert.Equal(t, 0, cleaner.calls)
}

func TestDiscountCleanupRunStopsOnCancel(t *testing.T) {
	cleaner := &countingCleaner{}
	c := NewDiscountCleanup(cleaner, nil, logger.Nop(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, cleaner.calls, "first pass runs immediately")
}
