// Package model holds the value types exchanged between the cost model, the
// optimizer, the liquidity calibrator and the scenario runner.
package model

import (
	"fmt"
	"math"

	apperrors "optimal_execution/pkg/errors"
)

// MarketParameters is the immutable input of one solve.
// Fields carry their documented ranges; Validate enforces them.
type MarketParameters struct {
	OrderSize         float64 `json:"order_size" yaml:"order_size"`                 // X0, shares, > 0
	Horizon           float64 `json:"horizon" yaml:"horizon"`                       // T, time units, > 0
	Periods           int     `json:"periods" yaml:"periods"`                       // N, >= 1
	Volatility        float64 `json:"sigma" yaml:"sigma"`                           // >= 0
	RiskAversion      float64 `json:"lambda" yaml:"lambda"`                         // >= 0
	ImpactCoefficient float64 `json:"eta" yaml:"eta"`                               // >= 0
	ImpactExponent    float64 `json:"gamma" yaml:"gamma"`                           // > 0, typically <= 1
	Price             float64 `json:"s0" yaml:"s0"`                                 // S0, > 0
	SpreadBps         float64 `json:"spread_bps" yaml:"spread_bps"`                 // >= 0
	PermanentFraction float64 `json:"permanent_fraction" yaml:"permanent_fraction"` // [0, 1]
	DecayRate         float64 `json:"decay_rate" yaml:"decay_rate"`                 // >= 0
	MaxTradeFraction  float64 `json:"max_trade_fraction" yaml:"max_trade_fraction"` // (0, 1]
}

// literature defaults (Almgren-Chriss, Curato et al. 2014)
var defaultParameters = MarketParameters{
	OrderSize:         100000,
	Horizon:           1.0,
	Periods:           10,
	Volatility:        0.02,
	RiskAversion:      1e-6,
	ImpactCoefficient: 3.5e-2,
	ImpactExponent:    0.67,
	Price:             10.0,
	SpreadBps:         1.0,
	PermanentFraction: 0.4,
	DecayRate:         7.92,
	MaxTradeFraction:  0.40,
}

// DefaultParameters returns a copy of the literature defaults.
func DefaultParameters() MarketParameters {
	return defaultParameters
}

// TransientFraction is the share of impact that decays between periods.
func (p MarketParameters) TransientFraction() float64 {
	return 1 - p.PermanentFraction
}

// Tau is the length of one trading period.
func (p MarketParameters) Tau() float64 {
	return p.Horizon / float64(p.Periods)
}

// MaxTradeSize is the per-period cap in shares.
func (p MarketParameters) MaxTradeSize() float64 {
	return p.MaxTradeFraction * p.OrderSize
}

// Validate checks every field against its documented range. The returned
// error matches apperrors.ErrConfiguration.
func (p MarketParameters) Validate() error {
	positive := []struct {
		field string
		value float64
	}{
		{"order_size", p.OrderSize},
		{"horizon", p.Horizon},
		{"s0", p.Price},
		{"gamma", p.ImpactExponent},
	}
	for _, f := range positive {
		if !(f.value > 0) || math.IsInf(f.value, 0) {
			return apperrors.ValidationError{Field: f.field, Value: f.value, Message: "must be a positive finite number"}
		}
	}

	if p.Periods < 1 {
		return apperrors.ValidationError{Field: "periods", Value: p.Periods, Message: "must be at least 1"}
	}

	nonNegative := []struct {
		field string
		value float64
	}{
		{"sigma", p.Volatility},
		{"lambda", p.RiskAversion},
		{"eta", p.ImpactCoefficient},
		{"spread_bps", p.SpreadBps},
		{"decay_rate", p.DecayRate},
	}
	for _, f := range nonNegative {
		if !(f.value >= 0) || math.IsInf(f.value, 0) {
			return apperrors.ValidationError{Field: f.field, Value: f.value, Message: "must be a non-negative finite number"}
		}
	}

	if !(p.PermanentFraction >= 0 && p.PermanentFraction <= 1) {
		return apperrors.ValidationError{Field: "permanent_fraction", Value: p.PermanentFraction, Message: "must be within [0, 1]"}
	}

	if !(p.MaxTradeFraction > 0 && p.MaxTradeFraction <= 1) {
		return apperrors.ValidationError{Field: "max_trade_fraction", Value: p.MaxTradeFraction, Message: "must be within (0, 1]"}
	}

	// N periods at the cap must be able to cover the whole order
	if p.MaxTradeFraction*float64(p.Periods) < 1-1e-12 {
		return apperrors.ValidationError{
			Field:   "max_trade_fraction",
			Value:   p.MaxTradeFraction,
			Message: fmt.Sprintf("%d periods at this bound cannot execute the full order", p.Periods),
		}
	}

	return nil
}
