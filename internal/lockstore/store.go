package lockstore

import (
	"context"
	"errors"
	"time"
)

// ErrDependencyUnavailable is returned when both the primary lock store and
// the fallback cache fail to serve a call.
var ErrDependencyUnavailable = errors.New("lock store unavailable: primary and fallback both unreachable")

// LockRecord is the value stored under a seat lock key.
type LockRecord struct {
	Owner      string    `json:"owner"`
	ShowtimeID string    `json:"showtime_id"`
	LockedAt   time.Time `json:"locked_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store is a key/value store for short-lived locks. Expiry is enforced by
// the store's own TTL mechanism; callers never sweep expired entries.
type Store interface {
	// Acquire sets the lock if the key is free. On conflict it returns
	// false together with the current holder's record.
	Acquire(ctx context.Context, key string, rec LockRecord, ttl time.Duration) (bool, *LockRecord, error)
	// Release deletes the lock only when held by owner. Returns whether a
	// lock was actually released.
	Release(ctx context.Context, key, owner string) (bool, error)
	// Extend refreshes the TTL of a lock held by owner. Returns whether
	// the lock was extended.
	Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Get returns the active lock record for key, or nil when unlocked.
	Get(ctx context.Context, key string) (*LockRecord, error)
	// Keys lists keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	HealthCheck(ctx context.Context) error
}
