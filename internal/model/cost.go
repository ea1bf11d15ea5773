package model

// CostBreakdown decomposes the expected execution cost (currency units).
// Total is always Impact + Spread + Risk.
type CostBreakdown struct {
	Impact float64 `json:"impact_cost"`
	Spread float64 `json:"spread_cost"`
	Risk   float64 `json:"risk_cost"`
	Total  float64 `json:"total_cost"`
}

// NewCostBreakdown builds a breakdown whose total is the sum of its parts.
func NewCostBreakdown(impact, spread, risk float64) CostBreakdown {
	return CostBreakdown{
		Impact: impact,
		Spread: spread,
		Risk:   risk,
		Total:  impact + spread + risk,
	}
}

// CostShares is each component as a percentage of the total cost.
type CostShares struct {
	ImpactPct float64 `json:"impact_pct"`
	SpreadPct float64 `json:"spread_pct"`
	RiskPct   float64 `json:"risk_pct"`
}

// Percentages returns the component shares, all zero for a zero-cost breakdown.
func (c CostBreakdown) Percentages() CostShares {
	if c.Total == 0 {
		return CostShares{}
	}
	return CostShares{
		ImpactPct: c.Impact / c.Total * 100,
		SpreadPct: c.Spread / c.Total * 100,
		RiskPct:   c.Risk / c.Total * 100,
	}
}
