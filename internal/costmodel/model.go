// Package costmodel evaluates the expected cost of a trade schedule under
// power-law impact split into a permanent part and an exponentially decaying
// transient part, plus bid-ask spread and quadratic inventory risk.
package costmodel

import (
	"math"

	"optimal_execution/internal/model"
	apperrors "optimal_execution/pkg/errors"
)

const bpsToFraction = 1e-4

// Evaluate returns the cost breakdown of schedule under p. It is a pure
// function: the same inputs always give the same breakdown.
//
// Periods are walked in order because the transient displacement carried into
// period i is the decayed residual of everything traded before it.
func Evaluate(schedule model.TradeSchedule, p model.MarketParameters) (model.CostBreakdown, error) {
	if err := p.Validate(); err != nil {
		return model.CostBreakdown{}, err
	}
	if len(schedule) != p.Periods {
		return model.CostBreakdown{}, apperrors.Numerical("schedule has %d periods, parameters expect %d", len(schedule), p.Periods)
	}
	return evaluate(schedule, p)
}

// evaluate skips parameter validation; callers must have validated p.
func evaluate(schedule model.TradeSchedule, p model.MarketParameters) (model.CostBreakdown, error) {
	tau := p.Tau()
	decay := math.Exp(-p.DecayRate * tau)
	etaPermanent := p.ImpactCoefficient * p.PermanentFraction
	etaTransient := p.ImpactCoefficient * p.TransientFraction()
	spreadPerShare := p.SpreadBps * bpsToFraction * p.Price
	riskScale := 0.5 * p.RiskAversion * p.Volatility * p.Volatility * tau

	var impactCost, spreadCost, riskCost float64
	displacement := 0.0
	inventory := p.OrderSize

	for i, trade := range schedule {
		if trade < 0 || math.IsNaN(trade) || math.IsInf(trade, 0) {
			return model.CostBreakdown{}, apperrors.Numerical("period %d has invalid trade size %v", i, trade)
		}

		displacement *= decay

		scaled := math.Pow(math.Abs(trade), p.ImpactExponent)
		permanent := etaPermanent * scaled
		transient := etaTransient * scaled
		current := displacement + permanent + transient

		impactCost += trade * current * p.Price
		spreadCost += trade * spreadPerShare

		inventory -= trade
		riskCost += riskScale * inventory * inventory

		// permanent impact is sunk; only the transient part carries over
		displacement += transient
	}

	return model.NewCostBreakdown(impactCost, spreadCost, riskCost), nil
}

// TWAP evaluates the uniform schedule, the baseline every solve is compared to.
func TWAP(p model.MarketParameters) (model.CostBreakdown, error) {
	return Evaluate(model.Uniform(p.OrderSize, p.Periods), p)
}

// Objective binds validated parameters into a reusable cost function.
type Objective struct {
	params model.MarketParameters
}

// NewObjective validates p once so that repeated evaluations skip it.
func NewObjective(p model.MarketParameters) (*Objective, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Objective{params: p}, nil
}

// Breakdown evaluates the full breakdown of schedule.
func (o *Objective) Breakdown(schedule model.TradeSchedule) (model.CostBreakdown, error) {
	if len(schedule) != o.params.Periods {
		return model.CostBreakdown{}, apperrors.Numerical("schedule has %d periods, parameters expect %d", len(schedule), o.params.Periods)
	}
	return evaluate(schedule, o.params)
}

// Total evaluates only the total cost of schedule.
func (o *Objective) Total(schedule model.TradeSchedule) (float64, error) {
	c, err := o.Breakdown(schedule)
	if err != nil {
		return 0, err
	}
	return c.Total, nil
}

// Improvement is the relative saving of cost over baseline, in percent.
func Improvement(cost, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (baseline - cost) / baseline * 100
}

