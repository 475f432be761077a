package infra

import (
	"context"
	"math"

	"repricer/internal/service"

	"github.com/shopspring/decimal"
)

// HeuristicRecommender is an in-process stand-in for the pricing model, used
// in development and when no model is deployed. It moves halfway toward the
// category average, leans with the category trend, and never proposes more
// than ±20% from the current price. Confidence grows with history length.
type HeuristicRecommender struct{}

func NewHeuristicRecommender() *HeuristicRecommender { return &HeuristicRecommender{} }

var (
	half       = decimal.RequireFromString("0.5")
	lowerBound = decimal.RequireFromString("0.8")
	upperBound = decimal.RequireFromString("1.2")
	trendNudge = decimal.RequireFromString("0.02")
	minPrice   = decimal.RequireFromString("0.01")
)

func (HeuristicRecommender) Recommend(ctx context.Context, req service.OptimizationRequest) (*service.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current := req.CurrentPrice
	target := current
	if req.MarketContext.CategoryAverage.IsPositive() {
		target = current.Add(req.MarketContext.CategoryAverage.Sub(current).Mul(half))
	}

	switch req.MarketContext.Trend {
	case service.TrendUp:
		target = target.Mul(decimal.NewFromInt(1).Add(trendNudge))
	case service.TrendDown:
		target = target.Mul(decimal.NewFromInt(1).Sub(trendNudge))
	}

	if current.IsPositive() {
		target = decimal.Max(current.Mul(lowerBound), decimal.Min(current.Mul(upperBound), target))
	}
	target = decimal.Max(minPrice, target.Round(2))

	// 0.5 with no history, approaching 0.95 as points accumulate.
	confidence := 0.95 - 0.45*math.Exp(-float64(len(req.HistoryPoints))/10)

	return &service.Recommendation{
		RecommendedPrice: target,
		Confidence:       math.Round(confidence*100) / 100,
		Trend:            string(req.MarketContext.Trend),
	}, nil
}
