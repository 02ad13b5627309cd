package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/uvtab/emis_backend/config"
)

// RunLock guards a repair run against a concurrent run touching the same
// billing scope from another operator session.
type RunLock struct {
	lock *redislock.Lock
}

// AcquireRunLock obtains a distributed lock for the named tool and scope.
// When Redis is not configured the lock degrades to a no-op so the tools
// still work on a bare database.
func AcquireRunLock(ctx context.Context, toolName string, scopeKey string, ttl time.Duration) (*RunLock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return &RunLock{}, nil
	}
	lockKey := fmt.Sprintf("billing_run:%s:%s", toolName, scopeKey)
	lock, err := locker.Obtain(ctx, lockKey, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, errors.New("another billing run is already in progress for this scope")
	} else if err != nil {
		return nil, err
	}
	return &RunLock{lock: lock}, nil
}

// Release frees the lock. Safe to call on a no-op lock.
func (l *RunLock) Release(ctx context.Context) {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Release(ctx)
}
