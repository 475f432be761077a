package infra

import (
	"context"
	"errors"
	"fmt"

	"repricer/internal/service"
)

// BreakerRecommender guards another Recommender with a circuit breaker.
type BreakerRecommender struct {
	next service.Recommender
	cb   *CircuitBreaker
}

func NewBreakerRecommender(next service.Recommender, cb *CircuitBreaker) *BreakerRecommender {
	return &BreakerRecommender{next: next, cb: cb}
}

func (b *BreakerRecommender) Recommend(ctx context.Context, req service.OptimizationRequest) (*service.Recommendation, error) {
	var rec *service.Recommendation
	err := b.cb.Execute(func() error {
		var err error
		rec, err = b.next.Recommend(ctx, req)
		if err == nil {
			err = service.ValidateRecommendation(rec)
		}
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %w", service.ErrRecommendationUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// State reports the breaker state for /health.
func (b *BreakerRecommender) State() CBState { return b.cb.State() }

// CircuitState is State as a string, for handler.CircuitReporter.
func (b *BreakerRecommender) CircuitState() string { return b.cb.State().String() }
