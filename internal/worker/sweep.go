package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"repricer/internal/clock"
	"repricer/internal/model"
	"repricer/internal/observability"
	"repricer/internal/service"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Scanned   int
	Due       int
	Succeeded int
	Skipped   int // product lock held by another attempt
	Failed    int
}

// Sweeper drives due products through the optimizer.
type Sweeper struct {
	optimizer   service.OptimizerService
	clock       clock.Clock
	dlq         DeadLetter
	concurrency int
}

func NewSweeper(optimizer service.OptimizerService, clk clock.Clock, dlq DeadLetter, concurrency int) *Sweeper {
	if clk == nil {
		clk = clock.Real()
	}
	if dlq == nil {
		dlq = LogDLQ{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Sweeper{optimizer: optimizer, clock: clk, dlq: dlq, concurrency: concurrency}
}

// IsDue reports whether p should be optimized at now: never optimized, or at
// least AdjustmentFrequencyHours since the last attempt (24h by default).
func IsDue(p model.Product, now time.Time) bool {
	if p.LastOptimizedAt == nil {
		return true
	}
	freq := time.Duration(p.Settings().AdjustmentFrequencyHours) * time.Hour
	return now.Sub(*p.LastOptimizedAt) >= freq
}

// DueProducts filters snapshot down to the products due at now, keeping order.
func DueProducts(snapshot []model.Product, now time.Time) []model.Product {
	due := make([]model.Product, 0, len(snapshot))
	for _, p := range snapshot {
		if IsDue(p, now) {
			due = append(due, p)
		}
	}
	return due
}

// Sweep optimizes every due product of snapshot. The due set is fixed when the
// sweep starts; products becoming due later wait for the next sweep. A
// product's failure is logged and dead-lettered and never stops the others.
// Cancelling ctx stops launching new attempts.
func (s *Sweeper) Sweep(ctx context.Context, scope string, snapshot []model.Product) SweepReport {
	due := DueProducts(snapshot, s.clock.Now())
	report := SweepReport{Scanned: len(snapshot), Due: len(due)}
	observability.RecordSweepStart(scope, len(due))
	if len(due) == 0 {
		return report
	}

	log.Info().Str("scope", scope).Int("due", len(due)).Int("scanned", len(snapshot)).Msg("sweep: started")

	var succeeded, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, p := range due {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := s.optimizer.Optimize(gctx, p.ID)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, service.ErrOptimizationInProgress):
				skipped.Add(1)
				log.Debug().Str("product_id", p.ID.String()).Msg("sweep: product busy, skipped")
			default:
				failed.Add(1)
				observability.RecordSweepFailure()
				s.deadLetter(ctx, p, err)
			}
			// Failures are absorbed so one product never cancels the rest.
			return nil
		})
	}
	_ = g.Wait()

	report.Succeeded = int(succeeded.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	observability.RecordSweepDone(s.clock.Now().Unix())

	log.Info().
		Str("scope", scope).
		Int("succeeded", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("sweep: finished")
	return report
}

func (s *Sweeper) deadLetter(ctx context.Context, p model.Product, err error) {
	entry := DLQEntry{
		ProductID: p.ID.String(),
		UserID:    p.UserID.String(),
		Reason:    err.Error(),
		FailedAt:  s.clock.Now().UTC().Format(time.RFC3339),
	}
	var attemptErr *service.AttemptError
	if errors.As(err, &attemptErr) {
		entry.State = string(attemptErr.State)
	}
	// Record even if the sweep is being cancelled.
	s.dlq.Record(context.WithoutCancel(ctx), entry)
	observability.RecordDeadLettered()
}
