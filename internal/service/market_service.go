package service

import (
	"context"
	"fmt"

	"repricer/internal/model"
	"repricer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trend classifies the category's price movement since the earliest
// known prices of its competitors.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// trendThreshold is the relative change beyond which a category trends.
// Exactly ±5% is still stable.
var trendThreshold = decimal.RequireFromString("0.05")

// MarketStatistics is derived on demand and never persisted.
type MarketStatistics struct {
	AveragePrice    decimal.Decimal
	Trend           Trend
	CompetitorCount int
	// Competitors is the category set (self included) the figures were computed from.
	Competitors []model.Product
}

// MarketService computes per-category statistics from the catalog and ledger.
// It only reads, so calls for different categories may run concurrently.
type MarketService interface {
	Statistics(ctx context.Context, category string) (*MarketStatistics, error)
}

type marketService struct {
	products repository.ProductRepository
	history  repository.PriceHistoryRepository
}

func NewMarketService(products repository.ProductRepository, history repository.PriceHistoryRepository) MarketService {
	return &marketService{products: products, history: history}
}

func (s *marketService) Statistics(ctx context.Context, category string) (*MarketStatistics, error) {
	competitors, err := s.products.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list category %q: %w", category, err)
	}
	if len(competitors) == 0 {
		return nil, ErrEmptyCategory
	}

	ids := make([]uuid.UUID, len(competitors))
	prices := make([]decimal.Decimal, len(competitors))
	for i, p := range competitors {
		ids[i] = p.ID
		prices[i] = p.CurrentPrice
	}

	earliest, err := s.history.EarliestByProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load earliest prices for %q: %w", category, err)
	}

	// Competitors without history are left out of the old-price average.
	// Counting them as zero would drag the baseline down and report a
	// spurious upward trend.
	oldPrices := make([]decimal.Decimal, 0, len(earliest))
	for _, id := range ids {
		if e, ok := earliest[id]; ok {
			oldPrices = append(oldPrices, e.Price)
		}
	}

	avg := mean(prices)
	trend := TrendStable
	if len(oldPrices) > 0 {
		trend = ClassifyTrend(avg, mean(oldPrices))
	}

	return &MarketStatistics{
		AveragePrice:    avg,
		Trend:           trend,
		CompetitorCount: len(competitors),
		Competitors:     competitors,
	}, nil
}

// ClassifyTrend maps the relative change from oldAvg to avg onto a Trend.
// A non-positive baseline has no meaningful relative change and is stable.
func ClassifyTrend(avg, oldAvg decimal.Decimal) Trend {
	if !oldAvg.IsPositive() {
		return TrendStable
	}
	change := avg.Sub(oldAvg).Div(oldAvg)
	switch {
	case change.GreaterThan(trendThreshold):
		return TrendUp
	case change.LessThan(trendThreshold.Neg()):
		return TrendDown
	default:
		return TrendStable
	}
}

// mean returns the arithmetic mean; callers guarantee len(values) > 0.
func mean(values []decimal.Decimal) decimal.Decimal {
	return decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values))))
}
