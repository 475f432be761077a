package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is one listing in a seller's catalog.
// CurrentPrice only changes through the optimizer's apply step or an explicit
// manual edit, and always together with a PriceHistoryEntry.
type Product struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;index"`
	ExternalID       string           `gorm:"uniqueIndex;not null"` // marketplace listing id
	Name             string           `gorm:"not null"`
	Category         string           `gorm:"not null;index"`
	CurrentPrice     decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	RecommendedPrice *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ConfidenceScore  *float64
	LastOptimizedAt  *time.Time
	// AutoAdjust is nil until the owner saves settings; nil means disabled.
	AutoAdjust  *AutoAdjustSettings `gorm:"type:jsonb;serializer:json"`
	SKU         *string
	Stock       *int
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Product) TableName() string { return "products" }

// Settings returns the stored auto-adjust settings or the defaults.
func (p Product) Settings() AutoAdjustSettings {
	if p.AutoAdjust == nil {
		return DefaultAutoAdjustSettings()
	}
	return *p.AutoAdjust
}
