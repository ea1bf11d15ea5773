package model

import "time"

// SolveStatus tells how the search stopped. Both values are successful outcomes.
type SolveStatus string

const (
	StatusConverged     SolveStatus = "converged"
	StatusMaxIterations SolveStatus = "max-iterations-reached"
)

// Solution is the outcome of one optimizer invocation.
type Solution struct {
	Parameters        MarketParameters `json:"parameters"`
	Schedule          TradeSchedule    `json:"optimal_trades"`
	Breakdown         CostBreakdown    `json:"cost_breakdown"`
	Shares            CostShares       `json:"cost_shares"`
	Status            SolveStatus      `json:"status"`
	Iterations        int              `json:"iterations"`
	FunctionEvals     int              `json:"function_evals"`
	SolveTime         time.Duration    `json:"solve_time"`
	Seed              uint64           `json:"seed"`
	TWAPCost          float64          `json:"twap_cost"`
	ImprovementVsTWAP float64          `json:"improvement_vs_twap"`
}

// ScenarioResult is the outcome of one Monte Carlo trial. Error is set only
// when Success is false.
type ScenarioResult struct {
	ScenarioID int              `json:"scenario_id"`
	Ticker     string           `json:"ticker"`
	Seed       uint64           `json:"seed"`
	Parameters MarketParameters `json:"parameters"`
	Schedule   TradeSchedule    `json:"optimal_trades,omitempty"`
	Breakdown  CostBreakdown    `json:"cost_breakdown"`
	SolveTime  time.Duration    `json:"solve_time"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
}

// Cost is the total cost of the scenario's schedule.
func (r ScenarioResult) Cost() float64 {
	return r.Breakdown.Total
}
