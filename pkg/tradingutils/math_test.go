package tradingutils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, "23383012.35", RoundCurrency(23383012.3456).StringFixed(2))
	assert.Equal(t, "0.00", RoundCurrency(0.004).StringFixed(2))
}

func TestRoundQuantity(t *testing.T) {
	assert.True(t, RoundQuantity(13441.567, 0).Equal(decimal.NewFromInt(13442)))
	assert.Equal(t, "13441.57", RoundQuantity(13441.567, 2).String())
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, "0.72", RoundPercent(0.7219, 2).String())
}

func TestCostPerShare(t *testing.T) {
	assert.Equal(t, "233.83", CostPerShare(23383000, 100000).StringFixed(2))
	assert.True(t, CostPerShare(100, 0).IsZero())
}

func TestCostInBps(t *testing.T) {
	// 1,000 on a 1,000,000 notional is 10 bps
	assert.Equal(t, "10", CostInBps(1000, 100000, 10).String())
	assert.True(t, CostInBps(1000, 0, 10).IsZero())
}
