package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	ExternalID   string          `json:"external_id"   validate:"required,max=64"`
	Name         string          `json:"name"          validate:"required,min=2,max=200"`
	Category     string          `json:"category"      validate:"required,max=100"`
	CurrentPrice decimal.Decimal `json:"current_price" validate:"required,gt=0"`
	SKU          *string         `json:"sku"           validate:"omitempty,max=64"`
	Stock        *int            `json:"stock"         validate:"omitempty,min=0"`
	Description  *string         `json:"description"`
}

// UpdatePriceRequest is a manual price edit by the owner.
type UpdatePriceRequest struct {
	Price  decimal.Decimal `json:"price"  validate:"required,gt=0"`
	Reason string          `json:"reason" validate:"omitempty,max=200"`
}

// AutoAdjustSettingsRequest mirrors model.AutoAdjustSettings with range checks.
// Pointers distinguish "absent" from zero so that required works on 0 values.
type AutoAdjustSettingsRequest struct {
	Enabled                  *bool    `json:"enabled"                    validate:"required"`
	MinConfidence            *float64 `json:"min_confidence"             validate:"required,gte=0,lte=1"`
	MaxPriceChangePercent    *float64 `json:"max_price_change_percent"   validate:"required,gte=0,lte=100"`
	AdjustmentFrequencyHours *int     `json:"adjustment_frequency_hours" validate:"required,gte=1,lte=168"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AutoAdjustSettingsResponse struct {
	Enabled                  bool    `json:"enabled"`
	MinConfidence            float64 `json:"min_confidence"`
	MaxPriceChangePercent    float64 `json:"max_price_change_percent"`
	AdjustmentFrequencyHours int     `json:"adjustment_frequency_hours"`
}

type ProductResponse struct {
	ID               string                     `json:"id"`
	ExternalID       string                     `json:"external_id"`
	Name             string                     `json:"name"`
	Category         string                     `json:"category"`
	CurrentPrice     decimal.Decimal            `json:"current_price"`
	RecommendedPrice *decimal.Decimal           `json:"recommended_price"`
	ConfidenceScore  *float64                   `json:"confidence_score"`
	LastOptimizedAt  *time.Time                 `json:"last_optimized_at"`
	AutoAdjust       AutoAdjustSettingsResponse `json:"auto_adjust"`
	SKU              *string                    `json:"sku,omitempty"`
	Stock            *int                       `json:"stock,omitempty"`
	Description      *string                    `json:"description,omitempty"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// PriceHistoryItem is one ledger row.
type PriceHistoryItem struct {
	ID               string           `json:"id"`
	Price            decimal.Decimal  `json:"price"`
	Timestamp        time.Time        `json:"timestamp"`
	MarketContext    json.RawMessage  `json:"market_context,omitempty"`
	Reason           string           `json:"reason"`
	Source           string           `json:"source"`
	RecommendedPrice *decimal.Decimal `json:"recommended_price,omitempty"`
	Confidence       *float64         `json:"confidence,omitempty"`
}

type MarketAnalysisResponse struct {
	CategoryAverage decimal.Decimal `json:"category_average"`
	CompetitorCount int             `json:"competitor_count"`
	MarketTrend     string          `json:"market_trend"`
}

// ProductDetailResponse is returned by GET /api/products/:id.
type ProductDetailResponse struct {
	ProductResponse
	PriceHistory   []PriceHistoryItem      `json:"price_history"`
	MarketAnalysis *MarketAnalysisResponse `json:"market_analysis"`
}
