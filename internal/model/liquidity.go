package model

import (
	"fmt"
	"strings"
)

// LiquidityTier orders instruments from least to most liquid.
type LiquidityTier int

const (
	TierMicro LiquidityTier = iota
	TierSmall
	TierMid
	TierLarge
	TierMega
)

var tierNames = map[LiquidityTier]string{
	TierMicro: "micro",
	TierSmall: "small",
	TierMid:   "mid",
	TierLarge: "large",
	TierMega:  "mega",
}

func (t LiquidityTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the tier by name
func (t LiquidityTier) MarshalText() ([]byte, error) {
	name, ok := tierNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown liquidity tier %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a tier name
func (t *LiquidityTier) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for tier, name := range tierNames {
		if name == s {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown liquidity tier %q", string(text))
}

// LiquidityProfile is the calibrated liquidity constraint of one ticker for one
// order size. It is computed once per solve session and never mutated.
type LiquidityProfile struct {
	Ticker           string        `json:"ticker"`
	ADV              float64       `json:"adv"`
	OrderToADV       float64       `json:"order_to_adv"`
	Tier             LiquidityTier `json:"liquidity_tier"`
	MaxTradeFraction float64       `json:"max_trade_fraction"`
	Conservative     bool          `json:"conservative"`
}
