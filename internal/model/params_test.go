package model

import (
	"errors"
	"math"
	"testing"

	apperrors "optimal_execution/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParametersAreValid(t *testing.T) {
	p := DefaultParameters()
	require.NoError(t, p.Validate())
	assert.InDelta(t, 0.6, p.TransientFraction(), 1e-12)
	assert.InDelta(t, 0.1, p.Tau(), 1e-12)
	assert.InDelta(t, 40000, p.MaxTradeSize(), 1e-9)
}

func TestDefaultParametersReturnsCopy(t *testing.T) {
	p := DefaultParameters()
	p.OrderSize = 1
	assert.Equal(t, 100000.0, DefaultParameters().OrderSize)
}

func TestMarketParametersValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *MarketParameters)
		field  string
	}{
		{"zero order size", func(p *MarketParameters) { p.OrderSize = 0 }, "order_size"},
		{"negative horizon", func(p *MarketParameters) { p.Horizon = -1 }, "horizon"},
		{"zero periods", func(p *MarketParameters) { p.Periods = 0 }, "periods"},
		{"zero price", func(p *MarketParameters) { p.Price = 0 }, "s0"},
		{"nan price", func(p *MarketParameters) { p.Price = math.NaN() }, "s0"},
		{"zero gamma", func(p *MarketParameters) { p.ImpactExponent = 0 }, "gamma"},
		{"negative sigma", func(p *MarketParameters) { p.Volatility = -0.1 }, "sigma"},
		{"negative eta", func(p *MarketParameters) { p.ImpactCoefficient = -1 }, "eta"},
		{"negative spread", func(p *MarketParameters) { p.SpreadBps = -1 }, "spread_bps"},
		{"permanent above one", func(p *MarketParameters) { p.PermanentFraction = 1.5 }, "permanent_fraction"},
		{"zero max trade", func(p *MarketParameters) { p.MaxTradeFraction = 0 }, "max_trade_fraction"},
		{"max trade above one", func(p *MarketParameters) { p.MaxTradeFraction = 1.01 }, "max_trade_fraction"},
		{"bound too tight for periods", func(p *MarketParameters) { p.MaxTradeFraction = 0.05 }, "max_trade_fraction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.modify(&p)

			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))

			var ve apperrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestMarketParametersBoundaryValues(t *testing.T) {
	p := DefaultParameters()
	p.Periods = 1
	p.MaxTradeFraction = 1
	p.PermanentFraction = 1
	p.ImpactCoefficient = 0
	p.Volatility = 0
	p.RiskAversion = 0
	p.DecayRate = 0
	assert.NoError(t, p.Validate())

	p = DefaultParameters()
	p.MaxTradeFraction = 0.1 // exactly N*cap == 1
	assert.NoError(t, p.Validate())
}

func TestTradeScheduleHelpers(t *testing.T) {
	s := Uniform(100, 4)
	assert.Equal(t, TradeSchedule{25, 25, 25, 25}, s)
	assert.Equal(t, 100.0, s.Sum())
	assert.Equal(t, 25.0, s.Max())

	c := s.Clone()
	c[0] = 0
	assert.Equal(t, 25.0, s[0])

	assert.Equal(t, 0.0, TradeSchedule{}.Sum())
	assert.Equal(t, 0.0, TradeSchedule(nil).Max())
}

func TestTradeScheduleCheckFeasible(t *testing.T) {
	p := DefaultParameters()
	p.OrderSize = 1000
	p.Periods = 4
	p.MaxTradeFraction = 0.5

	assert.NoError(t, TradeSchedule{500, 250, 250, 0}.CheckFeasible(p, 1e-6))
	assert.Error(t, TradeSchedule{500, 500}.CheckFeasible(p, 1e-6), "wrong length")
	assert.Error(t, TradeSchedule{600, 200, 200, 0}.CheckFeasible(p, 1e-6), "above cap")
	assert.Error(t, TradeSchedule{500, 250, 250, 10}.CheckFeasible(p, 1e-6), "sum too large")
	assert.Error(t, TradeSchedule{500, 300, 250, -50}.CheckFeasible(p, 1e-6), "negative")
}

func TestCostBreakdown(t *testing.T) {
	c := NewCostBreakdown(60, 15, 25)
	assert.Equal(t, 100.0, c.Total)

	shares := c.Percentages()
	assert.InDelta(t, 60, shares.ImpactPct, 1e-12)
	assert.InDelta(t, 15, shares.SpreadPct, 1e-12)
	assert.InDelta(t, 25, shares.RiskPct, 1e-12)

	assert.Equal(t, CostShares{}, CostBreakdown{}.Percentages())
}
