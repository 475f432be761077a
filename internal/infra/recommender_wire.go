package infra

import (
	"encoding/json"
	"fmt"

	"repricer/internal/service"

	"github.com/shopspring/decimal"
)

// recommendationPayload is the answer shared by the subprocess and the
// sidecar. recommended_price may be a JSON number or a decimal string.
type recommendationPayload struct {
	RecommendedPrice *decimal.Decimal `json:"recommended_price"`
	Confidence       *float64         `json:"confidence"`
	MarketTrend      string           `json:"market_trend"`
}

// decodeRecommendation parses and validates one answer. Missing fields are
// malformed output, not zero values.
func decodeRecommendation(raw []byte) (*service.Recommendation, error) {
	var p recommendationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: malformed output: %w", service.ErrRecommendationUnavailable, err)
	}
	if p.RecommendedPrice == nil || p.Confidence == nil {
		return nil, fmt.Errorf("%w: output missing recommended_price or confidence", service.ErrRecommendationUnavailable)
	}
	rec := &service.Recommendation{
		RecommendedPrice: *p.RecommendedPrice,
		Confidence:       *p.Confidence,
		Trend:            p.MarketTrend,
	}
	if err := service.ValidateRecommendation(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
