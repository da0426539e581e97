package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a previously acquired distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes session access across processes. Hosts
// running a single process do not need one; the session manager's
// in-process mutexes suffice.
type DistributedLocker interface {
	// Lock acquires the lock for a key, blocking until acquired or ctx
	// is done. The TTL bounds how long a crashed holder can wedge the
	// key.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
