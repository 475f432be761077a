// Package lock provides per-key advisory locks used to serialize optimization
// attempts on a single product across request handlers and background sweeps.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned when the key stays held by someone else for the whole wait.
var ErrBusy = errors.New("lock is held by another holder")

// Locker acquires an exclusive lock for key. The returned release function
// must be called exactly once; calling it after the TTL expired is harmless.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// retryDelay is the polling step while waiting for a contended key.
const retryDelay = 25 * time.Millisecond
