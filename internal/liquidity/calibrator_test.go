package liquidity

import (
	"context"
	"errors"
	"math"
	"testing"

	"optimal_execution/internal/core"
	"optimal_execution/internal/model"
	apperrors "optimal_execution/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (l *noopLogger) Debug(msg string, fields ...interface{})               {}
func (l *noopLogger) Info(msg string, fields ...interface{})                {}
func (l *noopLogger) Warn(msg string, fields ...interface{})                {}
func (l *noopLogger) Error(msg string, fields ...interface{})               {}
func (l *noopLogger) Fatal(msg string, fields ...interface{})               {}
func (l *noopLogger) WithField(key string, value interface{}) core.ILogger  { return l }
func (l *noopLogger) WithFields(fields map[string]interface{}) core.ILogger { return l }

type mapSource map[string]float64

func (m mapSource) GetADV(_ context.Context, ticker string) (float64, error) {
	adv, ok := m[ticker]
	if !ok {
		return 0, errors.New("ticker not tracked")
	}
	return adv, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ratio float64
		want  model.LiquidityTier
	}{
		{0, model.TierMega},
		{0.0005, model.TierMega},
		{0.001, model.TierLarge},
		{0.004999, model.TierLarge},
		{0.005, model.TierMid},
		{0.0199, model.TierMid},
		{0.02, model.TierSmall},
		{0.049, model.TierSmall},
		{0.05, model.TierMicro},
		{3, model.TierMicro},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestBoundsAreMonotoneInOrderToADV(t *testing.T) {
	for _, conservative := range []bool{false, true} {
		c, err := NewCalibrator(Config{Conservative: conservative}, nil, &noopLogger{})
		require.NoError(t, err)

		prev := math.Inf(1)
		for ratio := 1e-5; ratio < 1; ratio *= 1.1 {
			p, err := c.Profile("X", ratio*1e6, 1e6)
			require.NoError(t, err)
			assert.LessOrEqual(t, p.MaxTradeFraction, prev, "ratio %v", ratio)
			prev = p.MaxTradeFraction
		}
	}
}

func TestConservativeModeTightensEveryTier(t *testing.T) {
	aggressive, err := NewCalibrator(Config{}, nil, &noopLogger{})
	require.NoError(t, err)
	conservative, err := NewCalibrator(Config{Conservative: true}, nil, &noopLogger{})
	require.NoError(t, err)

	for tier := model.TierMicro; tier <= model.TierMega; tier++ {
		assert.InDelta(t, BaseFraction(tier), aggressive.MaxTradeFraction(tier), 1e-12)
		assert.InDelta(t, BaseFraction(tier)*DefaultConservativeMultiplier, conservative.MaxTradeFraction(tier), 1e-12)
	}
	// the tightest bound still lets ten periods fill the order
	assert.GreaterOrEqual(t, conservative.MaxTradeFraction(model.TierMicro)*10, 1.0)
}

func TestProfile(t *testing.T) {
	c, err := NewCalibrator(Config{Conservative: true}, nil, &noopLogger{})
	require.NoError(t, err)

	p, err := c.Profile("AAPL", 100000, 50e6)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", p.Ticker)
	assert.InDelta(t, 0.002, p.OrderToADV, 1e-15)
	assert.Equal(t, model.TierLarge, p.Tier)
	assert.InDelta(t, 0.30, p.MaxTradeFraction, 1e-12)
	assert.True(t, p.Conservative)
}

func TestProfileRejectsMissingVolume(t *testing.T) {
	c, err := NewCalibrator(Config{}, nil, &noopLogger{})
	require.NoError(t, err)

	for _, adv := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := c.Profile("TOUR", 100000, adv)
		assert.ErrorIs(t, err, apperrors.ErrDataUnavailable, "adv %v", adv)
	}

	_, err = c.Profile("TOUR", 0, 1e6)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestCalibrate(t *testing.T) {
	source := mapSource{"NVDA": 170e6, "TOUR": 2e6, "EMPTY": 0}
	c, err := NewCalibrator(Config{}, source, &noopLogger{})
	require.NoError(t, err)

	nvda, err := c.Calibrate(context.Background(), "NVDA", 100000)
	require.NoError(t, err)
	assert.Equal(t, model.TierMega, nvda.Tier)
	assert.InDelta(t, 0.50, nvda.MaxTradeFraction, 1e-12)

	tour, err := c.Calibrate(context.Background(), "TOUR", 100000)
	require.NoError(t, err)
	assert.Equal(t, model.TierMicro, tour.Tier)
	assert.InDelta(t, 0.15, tour.MaxTradeFraction, 1e-12)

	_, err = c.Calibrate(context.Background(), "MISSING", 100000)
	assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)

	_, err = c.Calibrate(context.Background(), "EMPTY", 100000)
	assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
}

func TestCalibrateWithoutSource(t *testing.T) {
	c, err := NewCalibrator(Config{}, nil, nil)
	require.NoError(t, err)

	_, err = c.Calibrate(context.Background(), "AAPL", 1)
	assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
}

func TestNewCalibratorValidatesMultiplier(t *testing.T) {
	for _, m := range []float64{-0.5, 1, 1.2, math.NaN()} {
		_, err := NewCalibrator(Config{Conservative: true, Multiplier: m}, nil, nil)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration, "multiplier %v", m)
	}

	c, err := NewCalibrator(Config{Conservative: true, Multiplier: 0.5}, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, c.MaxTradeFraction(model.TierMega), 1e-12)
}
