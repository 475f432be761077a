package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Ledger entry sources.
const (
	SourceInitial        = "initial"
	SourceManual         = "manual"
	SourceAutoAdjust     = "auto_adjust"
	SourceRecommendation = "recommendation"
)

// PriceHistoryEntry records one price observation for a product.
// Rows are immutable: never updated or deleted.
type PriceHistoryEntry struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Seq       int64           `gorm:"autoIncrement;not null"` // breaks timestamp ties in insertion order
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index:idx_price_history_product_ts,priority:1"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Timestamp time.Time       `gorm:"not null;index:idx_price_history_product_ts,priority:2"`
	// MarketContext is the category snapshot taken when the entry was written.
	MarketContext    datatypes.JSON   `gorm:"type:jsonb"`
	Reason           string           `gorm:"not null"`
	Source           string           `gorm:"type:varchar(20);not null"`
	RecommendedPrice *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Confidence       *float64
}

func (PriceHistoryEntry) TableName() string { return "price_history" }
