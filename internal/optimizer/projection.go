package optimizer

import (
	"math"

	"optimal_execution/internal/model"
)

// zeroSumEpsilon is the fraction of the order below which a clipped candidate
// is treated as empty.
const zeroSumEpsilon = 1e-12

// Project maps an arbitrary vector onto the feasible set of p: every entry in
// [0, cap] and the entries summing to the order size. Feasible input is
// returned unchanged up to rounding.
//
// The vector is clipped to the box and rescaled to the order size. Rescaling
// can push entries above the cap again, so the excess is then water-filled
// into the entries that still have room, proportionally to their size (or to
// their room when they are all zero). Each pass saturates at least one more
// entry, which bounds the loop by the number of periods.
func Project(raw []float64, p model.MarketParameters) model.TradeSchedule {
	n := len(raw)
	if n == 0 {
		return model.TradeSchedule{}
	}
	limit := p.MaxTradeSize()
	x := make(model.TradeSchedule, n)

	for i, v := range raw {
		switch {
		case !(v > 0): // negative, zero and NaN
			x[i] = 0
		case v > limit:
			x[i] = limit
		default:
			x[i] = v
		}
	}

	sum := x.Sum()
	if sum <= zeroSumEpsilon*p.OrderSize {
		return model.Uniform(p.OrderSize, n)
	}
	scale := p.OrderSize / sum
	for i := range x {
		x[i] *= scale
	}

	for pass := 0; pass <= n; pass++ {
		excess := 0.0
		for i, v := range x {
			if v > limit {
				excess += v - limit
				x[i] = limit
			}
		}
		if excess <= 0 {
			break
		}

		var weight, room float64
		for _, v := range x {
			if v < limit {
				weight += v
				room += limit - v
			}
		}
		if room <= 0 {
			// only reachable when cap*N < X0, which parameter validation rejects
			break
		}
		for i, v := range x {
			if v >= limit {
				continue
			}
			if weight > 0 {
				x[i] += excess * v / weight
			} else {
				x[i] += excess * (limit - v) / room
			}
		}
	}

	for i, v := range x {
		x[i] = math.Min(v, limit)
	}
	return x
}
