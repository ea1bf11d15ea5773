// Package optimizer searches for the cost-minimizing trade schedule with a
// constrained differential evolution over projected candidates.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"optimal_execution/internal/core"
	"optimal_execution/internal/costmodel"
	"optimal_execution/internal/model"
	"optimal_execution/pkg/logging"
	"optimal_execution/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/stat"
)

// second PCG word, fixed so that the stream depends on the seed alone
const pcgStream = 0x9e3779b97f4a7c15

// progressEvery is the generation interval of verbose progress logs.
const progressEvery = 50

// Solver runs differential evolution (best/1/bin with dithered mutation).
// A Solver holds no per-solve state and is safe for concurrent use.
type Solver struct {
	opts    Options
	logger  core.ILogger
	tracer  trace.Tracer
	metrics *telemetry.MetricsHolder
}

// NewSolver creates a solver. The options are validated on every Solve so
// that a bad configuration surfaces as a configuration error there.
func NewSolver(opts Options, logger core.ILogger) *Solver {
	return &Solver{
		opts:    opts,
		logger:  logging.OrNop(logger).WithField("component", "optimizer"),
		tracer:  telemetry.GetTracer("optimizer"),
		metrics: telemetry.GetGlobalMetrics(),
	}
}

// Options returns the solver's options.
func (s *Solver) Options() Options {
	return s.opts
}

// population is the working set of one solve. Members are always feasible.
type population struct {
	members  []model.TradeSchedule
	energies []float64
	best     int
}

// Solve minimizes the expected cost of executing params.OrderSize over
// params.Periods periods. The result is a deterministic function of params,
// the options and seed.
//
// Both terminal statuses are successes: StatusConverged when the spread of
// population costs fell under the tolerance, StatusMaxIterations otherwise.
// Cancellation is checked between generations and returns ctx.Err().
func (s *Solver) Solve(ctx context.Context, params model.MarketParameters, seed uint64) (*model.Solution, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	objective, err := costmodel.NewObjective(params)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "Solve",
		trace.WithAttributes(
			attribute.Int("periods", params.Periods),
			attribute.Float64("order_size", params.OrderSize),
			attribute.Int64("seed", int64(seed)),
		),
	)
	defer span.End()

	start := time.Now()
	schedule, status, iterations, evals, err := s.search(ctx, objective, params, seed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	breakdown, err := objective.Breakdown(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate final schedule: %w", err)
	}
	twap, err := objective.Breakdown(model.Uniform(params.OrderSize, params.Periods))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate TWAP baseline: %w", err)
	}
	elapsed := time.Since(start)

	s.metrics.RecordSolve(ctx, string(status), elapsed, evals)
	span.SetAttributes(
		attribute.String("status", string(status)),
		attribute.Int("iterations", iterations),
		attribute.Float64("total_cost", breakdown.Total),
	)

	return &model.Solution{
		Parameters:        params,
		Schedule:          schedule,
		Breakdown:         breakdown,
		Shares:            breakdown.Percentages(),
		Status:            status,
		Iterations:        iterations,
		FunctionEvals:     evals,
		SolveTime:         elapsed,
		Seed:              seed,
		TWAPCost:          twap.Total,
		ImprovementVsTWAP: costmodel.Improvement(breakdown.Total, twap.Total),
	}, nil
}

func (s *Solver) search(ctx context.Context, objective *costmodel.Objective, params model.MarketParameters, seed uint64) (model.TradeSchedule, model.SolveStatus, int, int, error) {
	n := params.Periods
	if n == 1 {
		// the equality constraint leaves a single feasible point
		return model.TradeSchedule{params.OrderSize}, model.StatusConverged, 0, 1, nil
	}

	rng := rand.New(rand.NewPCG(seed, pcgStream))
	pop, evals, err := s.initialPopulation(rng, objective, params)
	if err != nil {
		return nil, "", 0, evals, err
	}
	size := len(pop.members)

	mutant := make([]float64, n)
	for gen := 1; gen <= s.opts.MaxIterations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, "", gen - 1, evals, err
		}

		f := s.opts.MutationMin + rng.Float64()*(s.opts.MutationMax-s.opts.MutationMin)
		for j := 0; j < size; j++ {
			r1, r2 := pickDonors(rng, size, j)
			best, a, b := pop.members[pop.best], pop.members[r1], pop.members[r2]
			forced := rng.IntN(n)
			for k := 0; k < n; k++ {
				if k == forced || rng.Float64() < s.opts.Crossover {
					mutant[k] = best[k] + f*(a[k]-b[k])
				} else {
					mutant[k] = pop.members[j][k]
				}
			}

			trial := Project(mutant, params)
			energy, err := objective.Total(trial)
			evals++
			if err != nil {
				return nil, "", gen, evals, err
			}
			if energy < pop.energies[j] {
				pop.members[j] = trial
				pop.energies[j] = energy
				if energy < pop.energies[pop.best] {
					pop.best = j
				}
			}
		}

		mean, std := stat.PopMeanStdDev(pop.energies, nil)
		if s.opts.Verbose && gen%progressEvery == 0 {
			s.logger.Info("Optimizer progress",
				"generation", gen,
				"best_cost", pop.energies[pop.best],
				"population_std", std)
		}
		if std <= s.opts.Tolerance*math.Abs(mean) {
			s.logger.Debug("Optimizer converged", "generation", gen, "evals", evals)
			return pop.members[pop.best].Clone(), model.StatusConverged, gen, evals, nil
		}
	}

	s.logger.Debug("Optimizer hit iteration limit", "max_iterations", s.opts.MaxIterations, "evals", evals)
	return pop.members[pop.best].Clone(), model.StatusMaxIterations, s.opts.MaxIterations, evals, nil
}

// initialPopulation seeds the TWAP schedule plus projected uniform draws from
// the box [0, cap]^N.
func (s *Solver) initialPopulation(rng *rand.Rand, objective *costmodel.Objective, params model.MarketParameters) (*population, int, error) {
	size := s.opts.populationSize(params.Periods)
	limit := params.MaxTradeSize()
	pop := &population{
		members:  make([]model.TradeSchedule, size),
		energies: make([]float64, size),
	}

	raw := make([]float64, params.Periods)
	evals := 0
	for i := range pop.members {
		if i == 0 {
			pop.members[i] = model.Uniform(params.OrderSize, params.Periods)
		} else {
			for k := range raw {
				raw[k] = rng.Float64() * limit
			}
			pop.members[i] = Project(raw, params)
		}

		energy, err := objective.Total(pop.members[i])
		evals++
		if err != nil {
			return nil, evals, err
		}
		pop.energies[i] = energy
		if energy < pop.energies[pop.best] {
			pop.best = i
		}
	}
	return pop, evals, nil
}

// pickDonors draws two distinct indices different from target.
func pickDonors(rng *rand.Rand, size, target int) (int, int) {
	r1 := rng.IntN(size - 1)
	if r1 >= target {
		r1++
	}
	r2 := rng.IntN(size - 2)
	lo, hi := min(r1, target), max(r1, target)
	if r2 >= lo {
		r2++
	}
	if r2 >= hi {
		r2++
	}
	return r1, r2
}
