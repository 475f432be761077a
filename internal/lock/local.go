package lock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process Locker. It serializes goroutines of a single
// process; use Redis when more than one replica shares the catalog.
type Local struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

// NewLocal returns a Local locker that gives up after wait.
func NewLocal(wait time.Duration) *Local {
	return &Local{held: make(map[string]chan struct{}), wait: wait}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
			// released, race for it again
		case <-timer.C:
			return nil, ErrBusy
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
