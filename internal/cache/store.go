package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by nil stores and lockers.
var ErrNotConfigured = errors.New("cache: not configured")

// Store represents a shared cache interface used across the application. Invitation and user
// state is never cached; the store only carries counters and short-lived coordination keys.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Locker coordinates short critical sections across processes.
type Locker interface {
	// TryLock attempts to take key for ttl. The returned token must be passed to Release.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}
