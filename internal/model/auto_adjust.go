package model

// AutoAdjustSettings controls whether recommendations are applied without review.
type AutoAdjustSettings struct {
	Enabled                  bool    `json:"enabled"`
	MinConfidence            float64 `json:"min_confidence"`
	MaxPriceChangePercent    float64 `json:"max_price_change_percent"`
	AdjustmentFrequencyHours int     `json:"adjustment_frequency_hours"`
}

const (
	DefaultMinConfidence            = 0.85
	DefaultMaxPriceChangePercent    = 20.0
	DefaultAdjustmentFrequencyHours = 24
)

// DefaultAutoAdjustSettings is used for products that never saved settings.
func DefaultAutoAdjustSettings() AutoAdjustSettings {
	return AutoAdjustSettings{
		Enabled:                  false,
		MinConfidence:            DefaultMinConfidence,
		MaxPriceChangePercent:    DefaultMaxPriceChangePercent,
		AdjustmentFrequencyHours: DefaultAdjustmentFrequencyHours,
	}
}

// Valid reports whether every field is inside its documented range.
func (s AutoAdjustSettings) Valid() bool {
	return s.MinConfidence >= 0 && s.MinConfidence <= 1 &&
		s.MaxPriceChangePercent >= 0 && s.MaxPriceChangePercent <= 100 &&
		s.AdjustmentFrequencyHours >= 1 && s.AdjustmentFrequencyHours <= 168
}
