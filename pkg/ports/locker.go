package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates exclusive access to a tree across instances.
type DistributedLocker interface {
	// Lock acquires the lock for key (e.g., a tree name), blocking until it is
	// acquired or ctx is done. The lock expires after ttl if never released.
	// The returned UnlockFunc MUST be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
