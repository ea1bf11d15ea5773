package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// TradeSchedule is the number of shares traded in each period, in period order.
type TradeSchedule []float64

// Uniform returns the TWAP schedule: orderSize/periods in every period.
func Uniform(orderSize float64, periods int) TradeSchedule {
	s := make(TradeSchedule, periods)
	for i := range s {
		s[i] = orderSize / float64(periods)
	}
	return s
}

// Sum returns the total shares traded.
func (s TradeSchedule) Sum() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Sum(s)
}

// Max returns the largest single-period trade.
func (s TradeSchedule) Max() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Max(s)
}

// Clone returns an independent copy.
func (s TradeSchedule) Clone() TradeSchedule {
	out := make(TradeSchedule, len(s))
	copy(out, s)
	return out
}

// CheckFeasible reports whether the schedule satisfies the equality constraint
// (sum within relTol*X0) and the per-period box constraint of p.
func (s TradeSchedule) CheckFeasible(p MarketParameters, relTol float64) error {
	if len(s) != p.Periods {
		return fmt.Errorf("schedule has %d periods, expected %d", len(s), p.Periods)
	}
	limit := p.MaxTradeSize() * (1 + 1e-9)
	for i, v := range s {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("period %d trades %v shares", i, v)
		}
		if v > limit {
			return fmt.Errorf("period %d trades %.4f shares, above the %.4f cap", i, v, p.MaxTradeSize())
		}
	}
	if diff := math.Abs(s.Sum() - p.OrderSize); diff > relTol*p.OrderSize {
		return fmt.Errorf("schedule sums to %.6f, order size is %.6f", s.Sum(), p.OrderSize)
	}
	return nil
}
