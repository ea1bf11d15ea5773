package model

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "optimal_execution/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiquidityTierOrdering(t *testing.T) {
	assert.True(t, TierMicro < TierSmall)
	assert.True(t, TierSmall < TierMid)
	assert.True(t, TierMid < TierLarge)
	assert.True(t, TierLarge < TierMega)
	assert.Equal(t, "mid", TierMid.String())
	assert.Equal(t, "unknown", LiquidityTier(42).String())
}

func TestLiquidityProfileJSON(t *testing.T) {
	profile := LiquidityProfile{Ticker: "AAPL", ADV: 5e7, OrderToADV: 0.002, Tier: TierLarge, MaxTradeFraction: 0.3}

	data, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"liquidity_tier":"large"`)

	var decoded LiquidityProfile
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, profile, decoded)

	var tier LiquidityTier
	assert.Error(t, tier.UnmarshalText([]byte("huge")))
}

func ptr(v float64) *float64 { return &v }

func TestCalibrationRecordApply(t *testing.T) {
	rec := CalibrationRecord{Ticker: "SNAP", Eta: ptr(2e-7), Gamma: ptr(0.67), StdReturn: ptr(0.0348), S0: ptr(7.92)}

	p, err := rec.Apply(DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, 2e-7, p.ImpactCoefficient)
	assert.Equal(t, 0.0348, p.Volatility, "std_return is accepted as sigma")
	assert.Equal(t, 7.92, p.Price)

	rec.Sigma = ptr(0.05)
	p, err = rec.Apply(DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, 0.05, p.Volatility, "sigma wins over std_return")
}

func TestCalibrationRecordMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		rec   CalibrationRecord
		field string
	}{
		{"missing eta", CalibrationRecord{Gamma: ptr(0.6), Sigma: ptr(0.02), S0: ptr(10)}, "eta"},
		{"missing gamma", CalibrationRecord{Eta: ptr(0.03), Sigma: ptr(0.02), S0: ptr(10)}, "gamma"},
		{"missing price", CalibrationRecord{Eta: ptr(0.03), Gamma: ptr(0.6), Sigma: ptr(0.02)}, "S0"},
		{"missing volatility", CalibrationRecord{Eta: ptr(0.03), Gamma: ptr(0.6), S0: ptr(10)}, "sigma"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rec.Apply(DefaultParameters())
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
			var ve apperrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
