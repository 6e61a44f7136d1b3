package scheduler

import (
	"context"
	"time"

	"leaddesk_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDiscountCleanupInterval = 15 * time.Minute
	discountCleanupLockKey         = "scheduler:lock:discount_cleanup"
)

// Locker grants a lease on key for ttl. Only one scheduler replica should
// run a periodic job per tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisLocker leases keys with SET NX PX.
type RedisLocker struct {
	client redis.Cmdable
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// DiscountCleanup periodically removes expired discounts from packages.
type DiscountCleanup struct {
	cleaner  DiscountCleaner
	locker   Locker
	log      *logger.Logger
	interval time.Duration
}

// NewDiscountCleanup builds the loop. locker may be nil when a single
// scheduler instance runs.
func NewDiscountCleanup(cleaner DiscountCleaner, locker Locker, log *logger.Logger, interval time.Duration) *DiscountCleanup {
	if interval <= 0 {
		interval = defaultDiscountCleanupInterval
	}
	return &DiscountCleanup{
		cleaner:  cleaner,
		locker:   locker,
		log:      log,
		interval: interval,
	}
}

func (c *DiscountCleanup) Run(ctx context.Context) {
	if c == nil || c.cleaner == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup runs one pass and reports whether it held the lock.
func (c *DiscountCleanup) cleanup(ctx context.Context) bool {
	if c.locker != nil {
		// Half an interval: long enough to cover a pass, short enough that
		// the next tick on any replica can take it again.
		ok, err := c.locker.TryLock(ctx, discountCleanupLockKey, c.interval/2)
		if err != nil {
			c.log.Warn("discount cleanup lock failed", "error", err)
			return false
		}
		if !ok {
			return false
		}
	}

	removed, err := c.cleaner.CleanupExpired(ctx)
	observeTask(TaskDiscountCleanup, err)
	discountsRemoved.Add(float64(removed))
	if err != nil {
		c.log.Warn("discount cleanup failed", "removed", removed, "error", err)
		return true
	}

	if removed > 0 {
		c.log.Info("discount cleanup removed expired discounts", "removed", removed)
	}
	return true
}
