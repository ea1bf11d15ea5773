// Package liquidity turns an order's size relative to a ticker's average daily
// volume into a per-period trade bound.
package liquidity

import (
	"context"
	"math"

	"optimal_execution/internal/core"
	"optimal_execution/internal/model"
	apperrors "optimal_execution/pkg/errors"
	"optimal_execution/pkg/logging"
)

// DefaultConservativeMultiplier tightens every tier bound in conservative mode.
const DefaultConservativeMultiplier = 0.75

// FallbackMaxTradeFraction is the manual bound callers substitute when no
// volume data exists. The calibrator itself never applies it.
const FallbackMaxTradeFraction = 0.40

// tierBreakpoint is an exclusive upper limit on order/ADV for a tier.
type tierBreakpoint struct {
	below float64
	tier  model.LiquidityTier
}

// ordered from most to least liquid; anything above the last breakpoint is micro
var breakpoints = []tierBreakpoint{
	{0.001, model.TierMega},
	{0.005, model.TierLarge},
	{0.02, model.TierMid},
	{0.05, model.TierSmall},
}

var baseFractions = map[model.LiquidityTier]float64{
	model.TierMega:  0.50,
	model.TierLarge: 0.40,
	model.TierMid:   0.30,
	model.TierSmall: 0.20,
	model.TierMicro: 0.15,
}

// Classify maps an order/ADV ratio to its tier. Smaller ratios are more liquid.
func Classify(orderToADV float64) model.LiquidityTier {
	for _, bp := range breakpoints {
		if orderToADV < bp.below {
			return bp.tier
		}
	}
	return model.TierMicro
}

// BaseFraction returns the unadjusted bound of a tier.
func BaseFraction(tier model.LiquidityTier) float64 {
	if f, ok := baseFractions[tier]; ok {
		return f
	}
	return baseFractions[model.TierMicro]
}

// Config holds calibrator settings
type Config struct {
	Conservative bool
	// Multiplier applies in conservative mode; zero means DefaultConservativeMultiplier.
	Multiplier float64
}

// Calibrator computes liquidity profiles. It is stateless apart from its
// configuration and safe for concurrent use.
type Calibrator struct {
	conservative bool
	multiplier   float64
	source       core.IADVSource
	logger       core.ILogger
}

// NewCalibrator creates a calibrator reading volumes from source. source may
// be nil when only Profile is used.
func NewCalibrator(cfg Config, source core.IADVSource, logger core.ILogger) (*Calibrator, error) {
	if cfg.Multiplier == 0 {
		cfg.Multiplier = DefaultConservativeMultiplier
	}
	if !(cfg.Multiplier > 0 && cfg.Multiplier < 1) {
		return nil, apperrors.ValidationError{Field: "conservative_multiplier", Value: cfg.Multiplier, Message: "must be within (0, 1)"}
	}
	return &Calibrator{
		conservative: cfg.Conservative,
		multiplier:   cfg.Multiplier,
		source:       source,
		logger:       logging.OrNop(logger).WithField("component", "liquidity_calibrator"),
	}, nil
}

// Conservative reports whether bounds are tightened.
func (c *Calibrator) Conservative() bool {
	return c.conservative
}

// MaxTradeFraction returns the bound of a tier under the calibrator's mode.
func (c *Calibrator) MaxTradeFraction(tier model.LiquidityTier) float64 {
	f := BaseFraction(tier)
	if c.conservative {
		f *= c.multiplier
	}
	return f
}

// Profile builds the liquidity profile of an order of orderSize shares given
// the ticker's ADV. A missing or non-positive ADV is a data-unavailable error.
func (c *Calibrator) Profile(ticker string, orderSize, adv float64) (model.LiquidityProfile, error) {
	if !(adv > 0) || math.IsInf(adv, 0) {
		return model.LiquidityProfile{}, apperrors.DataUnavailable("no usable average daily volume for "+ticker, nil)
	}
	if !(orderSize > 0) || math.IsInf(orderSize, 0) {
		return model.LiquidityProfile{}, apperrors.ValidationError{Field: "order_size", Value: orderSize, Message: "must be a positive finite number"}
	}

	ratio := orderSize / adv
	tier := Classify(ratio)
	return model.LiquidityProfile{
		Ticker:           ticker,
		ADV:              adv,
		OrderToADV:       ratio,
		Tier:             tier,
		MaxTradeFraction: c.MaxTradeFraction(tier),
		Conservative:     c.conservative,
	}, nil
}

// Calibrate fetches the ticker's ADV from the configured source and builds its
// profile. Source failures surface as data-unavailable errors.
func (c *Calibrator) Calibrate(ctx context.Context, ticker string, orderSize float64) (model.LiquidityProfile, error) {
	if c.source == nil {
		return model.LiquidityProfile{}, apperrors.DataUnavailable("no volume source configured", nil)
	}
	adv, err := c.source.GetADV(ctx, ticker)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.LiquidityProfile{}, ctxErr
		}
		return model.LiquidityProfile{}, apperrors.DataUnavailable("average daily volume of "+ticker, err)
	}

	profile, err := c.Profile(ticker, orderSize, adv)
	if err != nil {
		return model.LiquidityProfile{}, err
	}
	c.logger.Info("Liquidity calibrated",
		"ticker", ticker,
		"adv", adv,
		"order_to_adv", profile.OrderToADV,
		"tier", profile.Tier.String(),
		"max_trade_fraction", profile.MaxTradeFraction)
	return profile, nil
}
