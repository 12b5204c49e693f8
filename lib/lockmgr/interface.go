package lockmgr

import (
	"context"
	"time"
)

// ILockManager defines the interface for a lock provider on the backend.
type ILockManager interface {
	// AcquireLock tries once to acquire the lock stored under key with an optional timeout
	// (zero means the lock never expires).
	// Return a boolean indicating whether the lock was acquired, an owner ID, and an error if any.
	AcquireLock(ctx context.Context, key string, timeout time.Duration) (ok bool, ownerID string, err error)

	// ReleaseLock releases the lock stored under key if it is owned by ownerID.
	// Return a boolean indicating whether the lock was released, and an error if any.
	// The method will also return true if the lock did not exist.
	ReleaseLock(ctx context.Context, key string, ownerID string) (ok bool, err error)

	// ExtendLock adds additional time to the remaining timeout of a lock owned by ownerID.
	// Return false if the lock is not owned by ownerID (anymore).
	ExtendLock(ctx context.Context, key string, ownerID string, additional time.Duration) (ok bool, err error)
}
