// Package simulation stress-tests the optimizer with Monte Carlo batches of
// independently perturbed scenarios executed on a bounded worker pool.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"optimal_execution/internal/core"
	"optimal_execution/internal/liquidity"
	"optimal_execution/internal/model"
	"optimal_execution/pkg/concurrency"
	apperrors "optimal_execution/pkg/errors"
	"optimal_execution/pkg/logging"
	"optimal_execution/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"golang.org/x/time/rate"
)

// FirstScenarioID numbers the first scenario of a batch.
const FirstScenarioID = 1

// Config holds runner settings
type Config struct {
	// Base supplies every parameter a calibration does not override.
	Base         model.MarketParameters
	Scenarios    int
	Workers      int           // <= 0 means concurrency.DefaultWorkers()
	Timeout      time.Duration // per scenario; 0 disables
	Perturbation Perturbation
	// FallbackMaxTradeFraction replaces the calibrated bound when no volume data exists.
	FallbackMaxTradeFraction float64
	ProgressInterval         time.Duration
}

// Runner executes scenario batches. Scenarios share nothing mutable: each task
// owns a copy of its parameters and writes only its own result slot.
type Runner struct {
	cfg          Config
	solver       core.ISolver
	calibrations core.ICalibrationSource
	calibrator   *liquidity.Calibrator
	pool         *concurrency.WorkerPool
	logger       core.ILogger
	metrics      *telemetry.MetricsHolder
	progress     *rate.Sometimes
}

// NewRunner creates a runner and its worker pool. calibrations and calibrator
// are only needed by RunTicker and RunAll.
func NewRunner(cfg Config, solver core.ISolver, calibrations core.ICalibrationSource, calibrator *liquidity.Calibrator, logger core.ILogger) *Runner {
	logger = logging.OrNop(logger)
	if cfg.Scenarios <= 0 {
		cfg.Scenarios = 10
	}
	if cfg.FallbackMaxTradeFraction == 0 {
		cfg.FallbackMaxTradeFraction = liquidity.FallbackMaxTradeFraction
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 5 * time.Second
	}

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "scenarios",
		MaxWorkers:  cfg.Workers,
		MaxCapacity: 10000,
	}, logger)

	return &Runner{
		cfg:          cfg,
		solver:       solver,
		calibrations: calibrations,
		calibrator:   calibrator,
		pool:         pool,
		logger:       logger.WithField("component", "scenario_runner"),
		metrics:      telemetry.GetGlobalMetrics(),
		progress:     &rate.Sometimes{First: 1, Interval: cfg.ProgressInterval},
	}
}

// Workers returns the pool size.
func (r *Runner) Workers() int {
	return r.pool.Workers()
}

// Close stops the worker pool, waiting for running scenarios.
func (r *Runner) Close() {
	r.pool.Stop()
}

// BatchRequest describes one Monte Carlo batch.
type BatchRequest struct {
	Ticker    string
	Params    model.MarketParameters
	Scenarios int
}

// Batch is the outcome of a batch; Results are ordered by scenario id.
type Batch struct {
	Ticker  string                 `json:"ticker"`
	Params  model.MarketParameters `json:"base_parameters"`
	Results []model.ScenarioResult `json:"scenarios"`
	Summary Summary                `json:"summary"`
	Elapsed time.Duration          `json:"elapsed"`
}

// RunBatch runs req.Scenarios scenarios in parallel and waits for all of them.
// Scenario failures are isolated into their results; the batch itself fails
// only for invalid base parameters or cancellation.
func (r *Runner) RunBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.Scenarios <= 0 {
		return nil, apperrors.ValidationError{Field: "scenarios", Value: req.Scenarios, Message: "must be at least 1"}
	}

	start := time.Now()
	logger := r.logger.WithField("ticker", req.Ticker)
	logger.Info("Starting scenario batch",
		"scenarios", req.Scenarios,
		"workers", r.pool.Workers(),
		"max_trade_fraction", req.Params.MaxTradeFraction)

	results := make([]model.ScenarioResult, req.Scenarios)
	tasks := make([]func(), req.Scenarios)
	var completed atomic.Int64
	for i := range tasks {
		id := FirstScenarioID + i
		tasks[i] = func() {
			results[i] = r.RunScenario(ctx, req.Ticker, req.Params, id)
			done := completed.Add(1)
			r.progress.Do(func() {
				logger.Info("Scenario progress", "completed", done, "total", req.Scenarios)
			})
		}
	}
	r.pool.RunAll(tasks)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].ScenarioID < results[b].ScenarioID })
	summary := Summarize(results)
	if summary.Count > 0 {
		r.metrics.SetBatchMeanCost(req.Ticker, summary.Mean)
	}

	batch := &Batch{
		Ticker:  req.Ticker,
		Params:  req.Params,
		Results: results,
		Summary: summary,
		Elapsed: time.Since(start),
	}
	logger.Info("Scenario batch finished",
		"succeeded", summary.Count,
		"failed", summary.Failed,
		"mean_cost", summary.Mean,
		"std_cost", summary.StdDev,
		"elapsed", batch.Elapsed)
	return batch, nil
}

// RunScenario perturbs base with the scenario's seed and solves it. It never
// returns an error: failures, timeouts and panics are captured in the result.
func (r *Runner) RunScenario(ctx context.Context, ticker string, base model.MarketParameters, scenarioID int) model.ScenarioResult {
	seed := ScenarioSeed(ticker, scenarioID)
	params := Perturb(base, seed, r.cfg.Perturbation)
	result := model.ScenarioResult{
		ScenarioID: scenarioID,
		Ticker:     ticker,
		Seed:       seed,
		Parameters: params,
	}

	start := time.Now()
	sol, err := r.solve(ctx, params, seed)
	result.SolveTime = time.Since(start)

	if err != nil {
		result.Error = fmt.Errorf("%w: scenario %d: %w", apperrors.ErrScenarioFailed, scenarioID, err).Error()
		r.logger.Warn("Scenario failed", "ticker", ticker, "scenario", scenarioID, "error", err)
	} else {
		result.Success = true
		result.Schedule = sol.Schedule
		result.Breakdown = sol.Breakdown
	}
	r.metrics.RecordScenario(ctx, ticker, result.Success)
	return result
}

func (r *Runner) solve(ctx context.Context, params model.MarketParameters, seed uint64) (*model.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attempt := func(ctx context.Context) (sol *model.Solution, err error) {
		defer func() {
			if p := recover(); p != nil {
				sol, err = nil, fmt.Errorf("solver panic: %v", p)
			}
		}()
		return r.solver.Solve(ctx, params, seed)
	}

	if r.cfg.Timeout <= 0 {
		return attempt(ctx)
	}
	limit := timeout.New[*model.Solution](r.cfg.Timeout)
	return failsafe.With[*model.Solution](limit).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[*model.Solution]) (*model.Solution, error) {
			return attempt(exec.Context())
		})
}

// TickerRun is the outcome of the calibrated batch of one ticker.
type TickerRun struct {
	Ticker      string                   `json:"ticker"`
	Calibration *model.CalibrationRecord `json:"calibration"`
	Liquidity   *model.LiquidityProfile  `json:"liquidity,omitempty"`
	// FallbackUsed is set when no volume data existed and the manual bound applied.
	FallbackUsed bool   `json:"fallback_used"`
	Batch        *Batch `json:"batch"`
}

// PrepareTicker loads the ticker's calibration over the base parameters and
// applies its calibrated liquidity bound. Only a data-unavailable calibrator
// error is replaced by the configured fallback bound. The returned run has no
// batch yet.
func (r *Runner) PrepareTicker(ctx context.Context, ticker string) (*TickerRun, model.MarketParameters, error) {
	if r.calibrations == nil || r.calibrator == nil {
		return nil, model.MarketParameters{}, apperrors.ValidationError{Field: "runner", Message: "calibration source and liquidity calibrator are required"}
	}

	record, err := r.calibrations.Load(ctx, ticker)
	if err != nil {
		return nil, model.MarketParameters{}, fmt.Errorf("failed to load calibration of %s: %w", ticker, err)
	}
	params, err := record.Apply(r.cfg.Base)
	if err != nil {
		return nil, model.MarketParameters{}, err
	}

	run := &TickerRun{Ticker: ticker, Calibration: record}
	profile, err := r.calibrator.Calibrate(ctx, ticker, params.OrderSize)
	switch {
	case err == nil:
		run.Liquidity = &profile
		params.MaxTradeFraction = profile.MaxTradeFraction
	case errors.Is(err, apperrors.ErrDataUnavailable):
		r.logger.Warn("Liquidity data unavailable, using fallback bound",
			"ticker", ticker,
			"max_trade_fraction", r.cfg.FallbackMaxTradeFraction,
			"error", err)
		run.FallbackUsed = true
		params.MaxTradeFraction = r.cfg.FallbackMaxTradeFraction
	default:
		return nil, model.MarketParameters{}, err
	}
	return run, params, nil
}

// RunTicker prepares the ticker and runs its batch.
func (r *Runner) RunTicker(ctx context.Context, ticker string) (*TickerRun, error) {
	run, params, err := r.PrepareTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	batch, err := r.RunBatch(ctx, BatchRequest{Ticker: ticker, Params: params, Scenarios: r.cfg.Scenarios})
	if err != nil {
		return nil, err
	}
	run.Batch = batch
	return run, nil
}

// SkippedTicker records why a ticker produced no batch.
type SkippedTicker struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// Run is the outcome of a multi-ticker simulation.
type Run struct {
	Tickers []*TickerRun    `json:"tickers"`
	Skipped []SkippedTicker `json:"skipped,omitempty"`
	Elapsed time.Duration   `json:"elapsed"`
}

// Totals returns the successful and attempted scenario counts over all tickers.
func (run *Run) Totals() (succeeded, attempted int) {
	for _, t := range run.Tickers {
		succeeded += t.Batch.Summary.Count
		attempted += t.Batch.Summary.Count + t.Batch.Summary.Failed
	}
	return succeeded, attempted
}

// RunAll runs the tickers one after another, each batch in parallel. A ticker
// with missing or invalid calibration data is skipped; cancellation aborts.
func (r *Runner) RunAll(ctx context.Context, tickers []string) (*Run, error) {
	start := time.Now()
	run := &Run{}
	for _, ticker := range tickers {
		tr, err := r.RunTicker(ctx, ticker)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, apperrors.ErrDataUnavailable) || errors.Is(err, apperrors.ErrConfiguration) {
				r.logger.Warn("Skipping ticker", "ticker", ticker, "error", err)
				run.Skipped = append(run.Skipped, SkippedTicker{Ticker: ticker, Reason: err.Error()})
				continue
			}
			return nil, err
		}
		run.Tickers = append(run.Tickers, tr)
	}
	run.Elapsed = time.Since(start)

	succeeded, attempted := run.Totals()
	r.logger.Info("Simulation complete",
		"tickers", len(run.Tickers),
		"skipped", len(run.Skipped),
		"succeeded", succeeded,
		"attempted", attempted,
		"elapsed", run.Elapsed)
	return run, nil
}
