package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repricer/internal/clock"
	"repricer/internal/lock"
	"repricer/internal/model"
	"repricer/internal/observability"
	"repricer/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AttemptState is the stage an optimization attempt is in.
type AttemptState string

const (
	StateBuilding      AttemptState = "building"
	StateRequesting    AttemptState = "requesting"
	StateDeciding      AttemptState = "deciding"
	StateApplying      AttemptState = "applying"
	StateRecordingOnly AttemptState = "recording_only"
	StateDone          AttemptState = "done"
)

// OptimizationResult is what a finished attempt reports to its caller.
type OptimizationResult struct {
	ProductID            uuid.UUID
	RecommendedPrice     decimal.Decimal
	Confidence           float64
	Trend                string
	AppliedAutomatically bool
}

// OptimizerService drives one product through build, recommend, gate and
// apply-or-record. Attempts on the same product are serialized by Locker.
type OptimizerService interface {
	Optimize(ctx context.Context, productID uuid.UUID) (*OptimizationResult, error)
	// OptimizeForUser is Optimize restricted to products owned by userID.
	OptimizeForUser(ctx context.Context, userID, productID uuid.UUID) (*OptimizationResult, error)
}

// OptimizerOptions wires the orchestrator's collaborators.
type OptimizerOptions struct {
	Products    repository.ProductRepository
	History     repository.PriceHistoryRepository
	Market      MarketService
	Recommender Recommender
	Locker      lock.Locker
	Clock       clock.Clock
	// Notifier is optional; nil disables seller notices.
	Notifier Notifier
	// Timeout bounds the recommender call. Zero means no extra bound.
	Timeout time.Duration
}

type optimizerService struct {
	products    repository.ProductRepository
	history     repository.PriceHistoryRepository
	market      MarketService
	recommender Recommender
	locker      lock.Locker
	clock       clock.Clock
	notifier    Notifier
	timeout     time.Duration
}

func NewOptimizerService(opts OptimizerOptions) OptimizerService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Market == nil {
		opts.Market = NewMarketService(opts.Products, opts.History)
	}
	return &optimizerService{
		products:    opts.Products,
		history:     opts.History,
		market:      opts.Market,
		recommender: opts.Recommender,
		locker:      opts.Locker,
		clock:       opts.Clock,
		notifier:    opts.Notifier,
		timeout:     opts.Timeout,
	}
}

func (s *optimizerService) OptimizeForUser(ctx context.Context, userID, productID uuid.UUID) (*OptimizationResult, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.UserID != userID {
		return nil, ErrProductNotFound
	}
	return s.Optimize(ctx, productID)
}

// ── Optimize ─────────────────────────────────────────────────────────────────
//   1. Acquire the product lock (held until the attempt ends)
//   2. Building: product, statistics, history → request
//   3. Requesting: bounded recommender call, output validated
//   4. Deciding: policy gate
//   5. Applying | RecordingOnly: product update + ledger entry in one TX

func (s *optimizerService) Optimize(ctx context.Context, productID uuid.UUID) (*OptimizationResult, error) {
	started := time.Now()
	logger := log.With().Str("product_id", productID.String()).Logger()

	release, err := acquireProduct(ctx, s.locker, productID)
	if err != nil {
		if errors.Is(err, ErrOptimizationInProgress) {
			observability.RecordLockContention()
			observability.RecordAttempt("busy", time.Since(started).Seconds())
		}
		return nil, err
	}
	defer release()

	result, state, err := s.attempt(ctx, productID)
	if err != nil {
		observability.RecordAttempt("failed", time.Since(started).Seconds())
		logger.Warn().Err(err).Str("state", string(state)).Msg("optimization attempt failed")
		return nil, &AttemptError{State: state, Err: err}
	}

	outcome := "recorded"
	if result.AppliedAutomatically {
		outcome = "applied"
	}
	observability.RecordAttempt(outcome, time.Since(started).Seconds())
	return result, nil
}

// attempt runs the state machine with the lock held. On failure it reports
// the state the attempt was in.
func (s *optimizerService) attempt(ctx context.Context, productID uuid.UUID) (*OptimizationResult, AttemptState, error) {
	logger := log.With().Str("product_id", productID.String()).Logger()

	// Building
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, StateBuilding, notFound(err)
	}
	stats, err := s.market.Statistics(ctx, product.Category)
	if err != nil {
		return nil, StateBuilding, err
	}
	history, err := s.history.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, StateBuilding, fmt.Errorf("load price history: %w", err)
	}
	req := BuildOptimizationRequest(*product, history, stats.Competitors, *stats)
	logger.Debug().Str("state", string(StateRequesting)).Int("history_points", len(req.HistoryPoints)).Msg("requesting recommendation")

	// Requesting
	rec, err := s.recommend(ctx, req)
	if err != nil {
		return nil, StateRequesting, err
	}
	// An attempt abandoned here (shutdown, client gone) must not commit.
	if err := ctx.Err(); err != nil {
		return nil, StateRequesting, err
	}

	// Deciding
	recommended := rec.RecommendedPrice.Round(2)
	decision := Decide(*product, product.Settings(), recommended, rec.Confidence)

	now := s.clock.Now()
	confidence := rec.Confidence
	product.RecommendedPrice = &recommended
	product.ConfidenceScore = &confidence
	product.LastOptimizedAt = &now

	previous := product.CurrentPrice
	entry := &model.PriceHistoryEntry{
		ProductID:     product.ID,
		Timestamp:     now,
		MarketContext: snapshotJSON(stats),
	}

	state := StateRecordingOnly
	if decision.Kind == DecisionApply {
		state = StateApplying
		product.CurrentPrice = recommended
		entry.Price = recommended
		entry.Source = model.SourceAutoAdjust
		entry.Reason = fmt.Sprintf("automatic adjustment (confidence %.2f)", confidence)
	} else {
		entry.Price = product.CurrentPrice
		entry.Source = model.SourceRecommendation
		entry.Reason = fmt.Sprintf("recommended %s for manual review: %s", recommended.StringFixed(2), decision.Reason)
		entry.RecommendedPrice = &recommended
		entry.Confidence = &confidence
	}

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if err := s.products.UpdatePricingTx(tx, product); err != nil {
			return err
		}
		return s.history.AppendTx(tx, entry)
	})
	if err != nil {
		return nil, state, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	trend := rec.Trend
	if trend == "" {
		trend = string(stats.Trend)
	}
	if state == StateApplying {
		logger.Info().
			Str("price", recommended.StringFixed(2)).
			Float64("confidence", confidence).
			Msg("price adjusted automatically")
	} else {
		logger.Debug().Str("reason", decision.Reason).Msg("recommendation recorded for review")
	}

	if s.notifier != nil {
		notice := OutcomeNotice{
			UserID:               product.UserID,
			ProductID:            product.ID,
			ProductName:          product.Name,
			PreviousPrice:        previous,
			RecommendedPrice:     recommended,
			Confidence:           confidence,
			AppliedAutomatically: state == StateApplying,
			Reason:               entry.Reason,
		}
		if err := s.notifier.NotifyOutcome(ctx, notice); err != nil {
			logger.Warn().Err(err).Msg("outcome notice not delivered")
		}
	}

	return &OptimizationResult{
		ProductID:            product.ID,
		RecommendedPrice:     recommended,
		Confidence:           confidence,
		Trend:                trend,
		AppliedAutomatically: state == StateApplying,
	}, StateDone, nil
}

// recommend performs the single blocking call of an attempt. No retry: a
// failed attempt waits for the next sweep or an explicit request.
func (s *optimizerService) recommend(ctx context.Context, req OptimizationRequest) (*Recommendation, error) {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	rec, err := s.recommender.Recommend(callCtx, req)
	if err == nil {
		err = ValidateRecommendation(rec)
	}
	observability.RecordRecommenderCall(err, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ErrRecommendationUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRecommendationUnavailable, err)
	}
	return rec, nil
}
