package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutcomeNotice tells a seller what an optimization attempt did to one of
// their products. It is emitted after the outcome is committed.
type OutcomeNotice struct {
	UserID               uuid.UUID       `json:"user_id"`
	ProductID            uuid.UUID       `json:"product_id"`
	ProductName          string          `json:"product_name"`
	PreviousPrice        decimal.Decimal `json:"previous_price"`
	RecommendedPrice     decimal.Decimal `json:"recommended_price"`
	Confidence           float64         `json:"confidence"`
	AppliedAutomatically bool            `json:"applied_automatically"`
	Reason               string          `json:"reason"`
}

// Notifier delivers outcome notices. Delivery is best effort: a failure is
// logged and never undoes the committed outcome.
type Notifier interface {
	NotifyOutcome(ctx context.Context, n OutcomeNotice) error
}
