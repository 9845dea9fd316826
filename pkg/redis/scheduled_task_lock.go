package redis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"weather-inference/pkg/log"
)

// ScheduledTaskLock keeps a scheduled task from running on two instances at once
type ScheduledTaskLock struct {
	client *Client
	opts   *LockOptions
}

// NewScheduledTaskLock creates a ScheduledTaskLock whose locks live for ttl
// and are refreshed at a third of it while the task runs.
func NewScheduledTaskLock(client *Client, namespace string, ttl time.Duration) *ScheduledTaskLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScheduledTaskLock{
		client: client,
		opts: NewLockOptions().
			WithLockNamespace(namespace).
			WithTTL(ttl).
			WithRefreshInterval(ttl / 3),
	}
}

// RunExclusive runs task while holding the lock named key. When another
// instance holds it the task is skipped and ran is false.
func (s *ScheduledTaskLock) RunExclusive(ctx context.Context, key string, task func(ctx context.Context) error) (ran bool, err error) {
	lock := NewLock(s.client, key, s.opts)

	acquired, err := lock.TryLock(ctx)
	if err != nil {
		return false, err
	}
	if !acquired {
		log.Info("scheduled task skipped, lock held elsewhere", zap.String("lock", lock.Key()))
		return false, nil
	}

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	refreshErrs := lock.AutoRefresh(refreshCtx)

	defer func() {
		stopRefresh()
		if refreshErr := <-refreshErrs; refreshErr != nil && !errors.Is(refreshErr, context.Canceled) {
			log.Warn("scheduled task lock refresh failed", zap.String("lock", lock.Key()), zap.Error(refreshErr))
		}
		if unlockErr := lock.Unlock(context.WithoutCancel(ctx)); unlockErr != nil && !errors.Is(unlockErr, ErrLockNotHeld) {
			log.Warn("scheduled task lock release failed", zap.String("lock", lock.Key()), zap.Error(unlockErr))
		}
	}()

	return true, task(ctx)
}
