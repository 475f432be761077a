package worker

// scheduler.go
// Owns the background sweeps: a periodic global sweep over the whole catalog
// and on-demand per-user sweeps fired when a seller lists their products.
// Both run detached from any request and stop when the scheduler's context ends.

import (
	"context"
	"sync"
	"time"

	"repricer/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CatalogReader is the slice of the product repository the scheduler needs.
type CatalogReader interface {
	ListAll(ctx context.Context) ([]model.Product, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Product, error)
}

// Scheduler runs sweeps in the background.
type Scheduler struct {
	sweeper  *Sweeper
	catalog  CatalogReader
	interval time.Duration

	mu      sync.Mutex
	ctx     context.Context
	pending map[uuid.UUID]struct{}
	wg      sync.WaitGroup
}

func NewScheduler(sweeper *Sweeper, catalog CatalogReader, interval time.Duration) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		catalog:  catalog,
		interval: interval,
		pending:  make(map[uuid.UUID]struct{}),
	}
}

// Start launches the periodic sweep. Triggers before Start are ignored.
// A non-positive interval disables the periodic sweep but keeps triggers.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if s.interval <= 0 {
		log.Info().Msg("scheduler: periodic sweep disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Info().Dur("interval", s.interval).Msg("scheduler: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("scheduler: shutting down")
				return
			case <-ticker.C:
				s.RunGlobal(ctx)
			}
		}
	}()
}

// RunGlobal sweeps the whole catalog synchronously.
func (s *Scheduler) RunGlobal(ctx context.Context) SweepReport {
	snapshot, err := s.catalog.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: failed to load catalog")
		return SweepReport{}
	}
	return s.sweeper.Sweep(ctx, "global", snapshot)
}

// TriggerUser starts a sweep of one seller's catalog and returns immediately.
// While a sweep for the same user is pending or running, further triggers
// are dropped. It reports whether a sweep was started.
func (s *Scheduler) TriggerUser(userID uuid.UUID) bool {
	s.mu.Lock()
	ctx := s.ctx
	if ctx == nil || ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	if _, busy := s.pending[userID]; busy {
		s.mu.Unlock()
		return false
	}
	s.pending[userID] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.pending, userID)
			s.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("user_id", userID.String()).Msg("scheduler: user sweep panicked")
			}
		}()

		snapshot, err := s.catalog.ListByUser(ctx, userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("scheduler: failed to load user catalog")
			return
		}
		s.sweeper.Sweep(ctx, "user", snapshot)
	}()
	return true
}

// Wait blocks until every running sweep has returned. Call it after
// cancelling the context passed to Start.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
