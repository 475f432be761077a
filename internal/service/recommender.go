package service

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Recommendation is the recommender's answer for one request.
type Recommendation struct {
	RecommendedPrice decimal.Decimal
	Confidence       float64
	// Trend is the recommender's own market reading; informational only.
	Trend string
}

// Recommender is the boundary to the external pricing model.
// Implementations must honor ctx and report every failure mode (call error,
// timeout, malformed output) as an error wrapping ErrRecommendationUnavailable.
type Recommender interface {
	Recommend(ctx context.Context, req OptimizationRequest) (*Recommendation, error)
}

// ValidateRecommendation rejects answers outside the contract: the price must
// stay positive once rounded to cents and the confidence must lie within [0, 1].
func ValidateRecommendation(r *Recommendation) error {
	if r == nil {
		return fmt.Errorf("%w: empty response", ErrRecommendationUnavailable)
	}
	if !r.RecommendedPrice.Round(2).IsPositive() {
		return fmt.Errorf("%w: price %s is not positive in cents", ErrRecommendationUnavailable, r.RecommendedPrice)
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrRecommendationUnavailable, r.Confidence)
	}
	return nil
}
