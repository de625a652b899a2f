package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes the turns of one conversation across
// replicas sharing a store.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. The lock
	// expires after ttl if it is never released. The returned UnlockFunc
	// must be called once the turn is persisted.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
