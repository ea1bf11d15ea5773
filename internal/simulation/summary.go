package simulation

import (
	"sort"

	"optimal_execution/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary reduces the costs of the successful scenarios of a batch.
type Summary struct {
	Count  int     `json:"n"`
	Failed int     `json:"failed"`
	Mean   float64 `json:"mean_cost"`
	StdDev float64 `json:"std_cost"` // population
	Min    float64 `json:"min_cost"`
	Max    float64 `json:"max_cost"`
	Median float64 `json:"median_cost"`
	CV     float64 `json:"cv"`
}

// SuccessRate is the fraction of scenarios that produced a schedule.
func (s Summary) SuccessRate() float64 {
	total := s.Count + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Count) / float64(total)
}

// Summarize computes summary statistics over successful results. Costs are
// sorted before reduction so the outcome does not depend on result order.
func Summarize(results []model.ScenarioResult) Summary {
	costs := make([]float64, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Success {
			costs = append(costs, r.Cost())
		} else {
			failed++
		}
	}

	s := Summary{Count: len(costs), Failed: failed}
	if len(costs) == 0 {
		return s
	}
	sort.Float64s(costs)

	s.Mean, s.StdDev = stat.PopMeanStdDev(costs, nil)
	s.Min = floats.Min(costs)
	s.Max = floats.Max(costs)
	s.Median = median(costs)
	if s.Mean != 0 {
		s.CV = s.StdDev / s.Mean
	}
	return s
}

// median of sorted values, averaging the middle pair for even lengths
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
