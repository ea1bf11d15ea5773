package bootstrap

import (
	"context"
	"fmt"
	"time"

	"optimal_execution/internal/model"
	"optimal_execution/internal/report"
)

// Solve optimizes one schedule. With an empty ticker the configured market
// parameters are used as-is; otherwise the ticker's calibration and
// liquidity bound are applied first.
func (a *App) Solve(ctx context.Context, ticker string) (*report.SolveReport, error) {
	params := a.Cfg.Market.ToParameters()
	var liq *model.LiquidityProfile

	if ticker != "" {
		prepared, p, err := a.Runner.PrepareTicker(ctx, ticker)
		if err != nil {
			return nil, err
		}
		params = p
		liq = prepared.Liquidity
	}

	sol, err := a.Solver.Solve(ctx, params, a.Cfg.Optimizer.Seed)
	if err != nil {
		return nil, fmt.Errorf("solve failed: %w", err)
	}
	return report.NewSolveReport(ticker, sol, liq), nil
}

// SimulationResult is a finished simulation and where it was written.
type SimulationResult struct {
	Report *report.BatchReport
	Path   string
}

// Simulate runs the Monte Carlo batches of tickers, saves the report into the
// output directory and, when persistence is enabled, into the store.
func (a *App) Simulate(ctx context.Context, tickers []string) (*SimulationResult, error) {
	run, err := a.Runner.RunAll(ctx, tickers)
	if err != nil {
		return nil, err
	}

	rep := report.NewBatchReport(run, tickers, a.Cfg.Simulation.Scenarios, a.Cfg.Market.OrderSize, a.Cfg.Liquidity.Conservative, time.Now())
	path, err := rep.Save(a.Cfg.Data.OutputDir)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("Simulation report saved", "path", path, "run_id", rep.Metadata.RunID)

	if a.Store != nil {
		if err := a.Store.SaveBatchReport(ctx, rep); err != nil {
			return nil, fmt.Errorf("failed to persist run %s: %w", rep.Metadata.RunID, err)
		}
	}
	return &SimulationResult{Report: rep, Path: path}, nil
}

// Liquidity calibrates the bound of an order of orderSize shares in ticker.
// A non-positive orderSize uses the configured order size.
func (a *App) Liquidity(ctx context.Context, ticker string, orderSize float64) (model.LiquidityProfile, error) {
	if orderSize <= 0 {
		orderSize = a.Cfg.Market.OrderSize
	}
	return a.Calibrator.Calibrate(ctx, ticker, orderSize)
}
