// Package report shapes solve and simulation outcomes into serializable
// records with monetary amounts rounded to cents.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"optimal_execution/internal/model"
	"optimal_execution/internal/simulation"
	"optimal_execution/pkg/tradingutils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// timestampLayout names output files and stamps report metadata.
const timestampLayout = "20060102_150405"

// Costs is a cost breakdown in currency, rounded to cents.
type Costs struct {
	Impact decimal.Decimal `json:"impact_cost"`
	Spread decimal.Decimal `json:"spread_cost"`
	Risk   decimal.Decimal `json:"risk_cost"`
	Total  decimal.Decimal `json:"total_cost"`
}

// NewCosts rounds a breakdown for presentation.
func NewCosts(c model.CostBreakdown) Costs {
	return Costs{
		Impact: tradingutils.RoundCurrency(c.Impact),
		Spread: tradingutils.RoundCurrency(c.Spread),
		Risk:   tradingutils.RoundCurrency(c.Risk),
		Total:  tradingutils.RoundCurrency(c.Total),
	}
}

// SolveReport is the presentation of a single optimizer run.
type SolveReport struct {
	RunID             string                  `json:"run_id"`
	Ticker            string                  `json:"ticker,omitempty"`
	Parameters        model.MarketParameters  `json:"parameters"`
	Liquidity         *model.LiquidityProfile `json:"liquidity,omitempty"`
	Trades            []decimal.Decimal       `json:"optimal_trades"`
	Costs             Costs                   `json:"cost_breakdown"`
	Shares            model.CostShares        `json:"cost_shares"`
	CostBps           decimal.Decimal         `json:"cost_bps"`
	TWAPCost          decimal.Decimal         `json:"twap_cost"`
	ImprovementVsTWAP decimal.Decimal         `json:"improvement_vs_twap_pct"`
	Status            model.SolveStatus       `json:"status"`
	Iterations        int                     `json:"iterations"`
	FunctionEvals     int                     `json:"function_evals"`
	SolveTimeSeconds  float64                 `json:"solve_time"`
	Seed              uint64                  `json:"seed"`
}

// NewSolveReport builds the report of sol. liq may be nil.
func NewSolveReport(ticker string, sol *model.Solution, liq *model.LiquidityProfile) *SolveReport {
	p := sol.Parameters
	return &SolveReport{
		RunID:             uuid.NewString(),
		Ticker:            ticker,
		Parameters:        p,
		Liquidity:         liq,
		Trades:            roundTrades(sol.Schedule),
		Costs:             NewCosts(sol.Breakdown),
		Shares:            sol.Shares,
		CostBps:           tradingutils.CostInBps(sol.Breakdown.Total, p.OrderSize, p.Price),
		TWAPCost:          tradingutils.RoundCurrency(sol.TWAPCost),
		ImprovementVsTWAP: tradingutils.RoundPercent(sol.ImprovementVsTWAP, 4),
		Status:            sol.Status,
		Iterations:        sol.Iterations,
		FunctionEvals:     sol.FunctionEvals,
		SolveTimeSeconds:  sol.SolveTime.Seconds(),
		Seed:              sol.Seed,
	}
}

// Metadata describes a simulation run.
type Metadata struct {
	RunID        string    `json:"run_id"`
	Timestamp    string    `json:"timestamp"`
	GeneratedAt  time.Time `json:"generated_at"`
	Scenarios    int       `json:"n_scenarios"`
	OrderSize    float64   `json:"order_size"`
	Conservative bool      `json:"conservative_mode"`
	Tickers      []string  `json:"tickers"`
	Succeeded    int       `json:"succeeded"`
	Attempted    int       `json:"attempted"`
	SuccessRate  float64   `json:"success_rate"`
	ElapsedSec   float64   `json:"elapsed_seconds"`
}

// Analysis is the per-ticker statistical summary.
type Analysis struct {
	Count            int                  `json:"n"`
	Failed           int                  `json:"failed"`
	Mean             decimal.Decimal      `json:"mean_cost"`
	StdDev           decimal.Decimal      `json:"std_cost"`
	Min              decimal.Decimal      `json:"min_cost"`
	Max              decimal.Decimal      `json:"max_cost"`
	Median           decimal.Decimal      `json:"median_cost"`
	CV               float64              `json:"cv"`
	ADV              float64              `json:"adv,omitempty"`
	OrderToADV       float64              `json:"order_to_adv,omitempty"`
	Tier             *model.LiquidityTier `json:"liquidity_tier,omitempty"`
	MaxTradeFraction float64              `json:"max_trade_fraction"`
	FallbackUsed     bool                 `json:"fallback_used"`
}

// Scenario is one scenario row of a simulation report.
type Scenario struct {
	Ticker       string            `json:"ticker"`
	ScenarioID   int               `json:"scenario_id"`
	Seed         uint64            `json:"seed"`
	Success      bool              `json:"success"`
	Cost         decimal.Decimal   `json:"cost"`
	Trades       []decimal.Decimal `json:"optimal_trades,omitempty"`
	SolveTimeSec float64           `json:"solve_time"`
	Error        string            `json:"error,omitempty"`
}

// BatchReport is the serializable outcome of a multi-ticker simulation.
type BatchReport struct {
	Metadata      Metadata                          `json:"metadata"`
	LiquidityInfo map[string]model.LiquidityProfile `json:"liquidity_info"`
	Analysis      map[string]Analysis               `json:"analysis"`
	Scenarios     []Scenario                        `json:"all_scenarios"`
	Skipped       []simulation.SkippedTicker        `json:"skipped,omitempty"`
}

// NewBatchReport builds the report of run. now stamps the metadata.
func NewBatchReport(run *simulation.Run, tickers []string, scenarios int, orderSize float64, conservative bool, now time.Time) *BatchReport {
	succeeded, attempted := run.Totals()
	rate := 0.0
	if attempted > 0 {
		rate = float64(succeeded) / float64(attempted)
	}

	rep := &BatchReport{
		Metadata: Metadata{
			RunID:        uuid.NewString(),
			Timestamp:    now.Format(timestampLayout),
			GeneratedAt:  now.UTC(),
			Scenarios:    scenarios,
			OrderSize:    orderSize,
			Conservative: conservative,
			Tickers:      tickers,
			Succeeded:    succeeded,
			Attempted:    attempted,
			SuccessRate:  rate,
			ElapsedSec:   run.Elapsed.Seconds(),
		},
		LiquidityInfo: make(map[string]model.LiquidityProfile),
		Analysis:      make(map[string]Analysis),
		Skipped:       run.Skipped,
	}

	for _, tr := range run.Tickers {
		s := tr.Batch.Summary
		a := Analysis{
			Count:            s.Count,
			Failed:           s.Failed,
			Mean:             tradingutils.RoundCurrency(s.Mean),
			StdDev:           tradingutils.RoundCurrency(s.StdDev),
			Min:              tradingutils.RoundCurrency(s.Min),
			Max:              tradingutils.RoundCurrency(s.Max),
			Median:           tradingutils.RoundCurrency(s.Median),
			CV:               s.CV,
			MaxTradeFraction: tr.Batch.Params.MaxTradeFraction,
			FallbackUsed:     tr.FallbackUsed,
		}
		if tr.Liquidity != nil {
			rep.LiquidityInfo[tr.Ticker] = *tr.Liquidity
			tier := tr.Liquidity.Tier
			a.ADV = tr.Liquidity.ADV
			a.OrderToADV = tr.Liquidity.OrderToADV
			a.Tier = &tier
		}
		rep.Analysis[tr.Ticker] = a

		for _, r := range tr.Batch.Results {
			row := Scenario{
				Ticker:       r.Ticker,
				ScenarioID:   r.ScenarioID,
				Seed:         r.Seed,
				Success:      r.Success,
				SolveTimeSec: r.SolveTime.Seconds(),
				Error:        r.Error,
			}
			if r.Success {
				row.Cost = tradingutils.RoundCurrency(r.Cost())
				row.Trades = roundTrades(r.Schedule)
			}
			rep.Scenarios = append(rep.Scenarios, row)
		}
	}
	return rep
}

// FileName is the name the report is saved under.
func (r *BatchReport) FileName() string {
	return fmt.Sprintf("simulation_results_%s.json", r.Metadata.Timestamp)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Save writes the report into dir, creating it if needed, and returns the path.
func (r *BatchReport) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, r.FileName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, r); err != nil {
		return "", err
	}
	return path, f.Close()
}

func roundTrades(s model.TradeSchedule) []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, v := range s {
		out[i] = tradingutils.RoundQuantity(v, 2)
	}
	return out
}
