package service

import (
	"fmt"

	"repricer/internal/model"

	"github.com/shopspring/decimal"
)

// DecisionKind is the outcome of the auto-adjustment gate.
type DecisionKind string

const (
	DecisionApply      DecisionKind = "apply"
	DecisionRecordOnly DecisionKind = "record_only"
)

// Decision carries the gate outcome and a human-readable cause for the ledger.
type Decision struct {
	Kind   DecisionKind
	Reason string
}

var hundred = decimal.NewFromInt(100)

// Decide is the auto-adjustment gate. It is a pure, total function: no I/O,
// no clock, the same inputs always produce the same decision.
func Decide(product model.Product, settings model.AutoAdjustSettings, recommendedPrice decimal.Decimal, confidence float64) Decision {
	if !settings.Enabled {
		return Decision{Kind: DecisionRecordOnly, Reason: "auto-adjust disabled"}
	}
	if confidence < settings.MinConfidence {
		return Decision{
			Kind:   DecisionRecordOnly,
			Reason: fmt.Sprintf("confidence %.2f below minimum %.2f", confidence, settings.MinConfidence),
		}
	}
	if !product.CurrentPrice.IsPositive() {
		return Decision{Kind: DecisionRecordOnly, Reason: "current price is not positive"}
	}

	pctChange := recommendedPrice.Sub(product.CurrentPrice).Abs().
		Div(product.CurrentPrice).
		Mul(hundred)
	maxChange := decimal.NewFromFloat(settings.MaxPriceChangePercent)
	if pctChange.GreaterThan(maxChange) {
		return Decision{
			Kind:   DecisionRecordOnly,
			Reason: fmt.Sprintf("price change %s%% exceeds limit %s%%", pctChange.StringFixed(2), maxChange.StringFixed(2)),
		}
	}
	return Decision{Kind: DecisionApply}
}
