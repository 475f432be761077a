package dto

import "github.com/shopspring/decimal"

// OptimizationResultResponse is returned by POST /api/products/:id/optimize.
type OptimizationResultResponse struct {
	ProductID            string          `json:"product_id"`
	RecommendedPrice     decimal.Decimal `json:"recommended_price"`
	Confidence           float64         `json:"confidence"`
	Trend                string          `json:"trend"`
	AppliedAutomatically bool            `json:"applied_automatically"`
}
