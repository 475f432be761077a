package service

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"repricer/internal/model"

	"github.com/shopspring/decimal"
)

// OptimizationRequest is the immutable snapshot sent to the recommender.
// Field order is the wire order; keep it stable.
type OptimizationRequest struct {
	ProductID     string               `json:"product_id"`
	CurrentPrice  decimal.Decimal      `json:"current_price"`
	Category      string               `json:"category"`
	HistoryPoints []HistoryPoint       `json:"history_points"`
	MarketContext RequestMarketContext `json:"market_context"`
}

// HistoryPoint is one ledger entry as seen by the recommender.
type HistoryPoint struct {
	Price         decimal.Decimal `json:"price"`
	Timestamp     time.Time       `json:"timestamp"`
	MarketContext json.RawMessage `json:"market_context,omitempty"`
}

type RequestMarketContext struct {
	CategoryAverage  decimal.Decimal   `json:"category_average"`
	Trend            Trend             `json:"trend"`
	CompetitorCount  int               `json:"competitor_count"`
	CompetitorPrices []decimal.Decimal `json:"competitor_prices"`
}

// BuildOptimizationRequest assembles the recommender input. It has no side
// effects: history is emitted oldest first and competitor prices in product
// id order, so equal inputs always serialize to identical bytes.
// The product itself is not listed among its competitors.
func BuildOptimizationRequest(
	product model.Product,
	history []model.PriceHistoryEntry,
	competitors []model.Product,
	stats MarketStatistics,
) OptimizationRequest {
	points := make([]HistoryPoint, len(history))
	ordered := slices.Clone(history)
	slices.SortStableFunc(ordered, func(a, b model.PriceHistoryEntry) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return compareInt64(a.Seq, b.Seq)
	})
	for i, e := range ordered {
		points[i] = HistoryPoint{
			Price:         e.Price,
			Timestamp:     e.Timestamp.UTC(),
			MarketContext: json.RawMessage(e.MarketContext),
		}
	}

	others := make([]model.Product, 0, len(competitors))
	for _, c := range competitors {
		if c.ID != product.ID {
			others = append(others, c)
		}
	}
	slices.SortFunc(others, func(a, b model.Product) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	prices := make([]decimal.Decimal, len(others))
	for i, c := range others {
		prices[i] = c.CurrentPrice
	}

	return OptimizationRequest{
		ProductID:     product.ID.String(),
		CurrentPrice:  product.CurrentPrice,
		Category:      product.Category,
		HistoryPoints: points,
		MarketContext: RequestMarketContext{
			CategoryAverage:  stats.AveragePrice,
			Trend:            stats.Trend,
			CompetitorCount:  stats.CompetitorCount,
			CompetitorPrices: prices,
		},
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
