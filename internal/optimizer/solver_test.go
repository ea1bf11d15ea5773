package optimizer

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"optimal_execution/internal/core"
	"optimal_execution/internal/costmodel"
	"optimal_execution/internal/model"
	apperrors "optimal_execution/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (l *noopLogger) Debug(msg string, fields ...interface{})               {}
func (l *noopLogger) Info(msg string, fields ...interface{})                {}
func (l *noopLogger) Warn(msg string, fields ...interface{})                {}
func (l *noopLogger) Error(msg string, fields ...interface{})               {}
func (l *noopLogger) Fatal(msg string, fields ...interface{})               {}
func (l *noopLogger) WithField(key string, value interface{}) core.ILogger  { return l }
func (l *noopLogger) WithFields(fields map[string]interface{}) core.ILogger { return l }

// referenceParams is the literature parameter set with a 20% per-period cap.
func referenceParams() model.MarketParameters {
	p := model.DefaultParameters()
	p.MaxTradeFraction = 0.2
	return p
}

func TestSolveReferenceScenarioFrontLoads(t *testing.T) {
	p := referenceParams()
	solver := NewSolver(DefaultOptions(), &noopLogger{})

	sol, err := solver.Solve(context.Background(), p, 42)
	require.NoError(t, err)

	require.NoError(t, sol.Schedule.CheckFeasible(p, 1e-9))
	assert.Equal(t, model.StatusConverged, sol.Status)
	assert.Greater(t, sol.Schedule[0], p.OrderSize/float64(p.Periods), "first trade exceeds TWAP")
	assert.Greater(t, sol.Schedule[0], sol.Schedule[p.Periods/2])
	assert.Greater(t, sol.Schedule[p.Periods-1], sol.Schedule[p.Periods/2], "the final trade picks up slack")

	twap, err := costmodel.TWAP(p)
	require.NoError(t, err)
	assert.Less(t, sol.Breakdown.Total, twap.Total)
	assert.Equal(t, twap.Total, sol.TWAPCost)
	assert.InEpsilon(t, 23.3835e6, sol.Breakdown.Total, 1e-4)
	assert.Greater(t, sol.ImprovementVsTWAP, 0.5)
	assert.InDelta(t, costmodel.Improvement(sol.Breakdown.Total, twap.Total), sol.ImprovementVsTWAP, 1e-12)

	recomputed, err := costmodel.Evaluate(sol.Schedule, p)
	require.NoError(t, err)
	assert.Equal(t, recomputed, sol.Breakdown, "reported breakdown is the cost of the reported schedule")

	shares := sol.Shares
	assert.InDelta(t, 100, shares.ImpactPct+shares.SpreadPct+shares.RiskPct, 1e-9)
	assert.Equal(t, uint64(42), sol.Seed)
	assert.True(t, sol.SolveTime > 0)
}

func TestSolveIsDeterministicPerSeed(t *testing.T) {
	p := referenceParams()
	opts := DefaultOptions()
	opts.MaxIterations = 30

	first, err := NewSolver(opts, &noopLogger{}).Solve(context.Background(), p, 7)
	require.NoError(t, err)
	second, err := NewSolver(opts, nil).Solve(context.Background(), p, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Schedule, second.Schedule)
	assert.Equal(t, first.Breakdown, second.Breakdown)
	assert.Equal(t, first.Iterations, second.Iterations)
	assert.Equal(t, first.FunctionEvals, second.FunctionEvals)
}

func TestSolveNeverWorseThanTWAP(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	opts := DefaultOptions()
	opts.MaxIterations = 40
	solver := NewSolver(opts, &noopLogger{})

	for i := 0; i < 5; i++ {
		p := referenceParams()
		p.Volatility *= 0.5 + rng.Float64()
		p.ImpactCoefficient *= 0.5 + rng.Float64()
		p.RiskAversion *= 10 * rng.Float64()

		sol, err := solver.Solve(context.Background(), p, uint64(i))
		require.NoError(t, err)
		assert.LessOrEqual(t, sol.Breakdown.Total, sol.TWAPCost)
		assert.GreaterOrEqual(t, sol.ImprovementVsTWAP, 0.0)
	}
}

func TestSolveWithoutImpactFrontLoadsToTheCap(t *testing.T) {
	p := referenceParams()
	p.ImpactCoefficient = 0

	sol, err := NewSolver(DefaultOptions(), &noopLogger{}).Solve(context.Background(), p, 42)
	require.NoError(t, err)

	// spread is split-invariant, so only inventory risk matters and the
	// optimum executes as fast as the cap allows
	limit := p.MaxTradeSize()
	for i := 0; i < 5; i++ {
		assert.InDelta(t, limit, sol.Schedule[i], 0.01*limit)
	}
	for i := 5; i < p.Periods; i++ {
		assert.InDelta(t, 0, sol.Schedule[i], 0.01*limit)
	}
	assert.Equal(t, 0.0, sol.Breakdown.Impact)
	assert.LessOrEqual(t, sol.Breakdown.Total, sol.TWAPCost)
}

func TestSolveCapAtOneOverNForcesTWAP(t *testing.T) {
	p := referenceParams()
	p.Periods = 5
	p.MaxTradeFraction = 0.2

	sol, err := NewSolver(DefaultOptions(), &noopLogger{}).Solve(context.Background(), p, 1)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64(model.Uniform(p.OrderSize, 5)), []float64(sol.Schedule), 1e-6)
	assert.Equal(t, model.StatusConverged, sol.Status)
	assert.InDelta(t, 0, sol.ImprovementVsTWAP, 1e-9)
}

func TestSolveSinglePeriod(t *testing.T) {
	p := model.DefaultParameters()
	p.Periods = 1
	p.MaxTradeFraction = 1

	sol, err := NewSolver(DefaultOptions(), &noopLogger{}).Solve(context.Background(), p, 42)
	require.NoError(t, err)

	assert.Equal(t, model.TradeSchedule{p.OrderSize}, sol.Schedule)
	assert.Equal(t, model.StatusConverged, sol.Status)
	assert.Equal(t, 0, sol.Iterations)
	assert.Equal(t, sol.TWAPCost, sol.Breakdown.Total)
}

func TestSolveStopsAtIterationLimit(t *testing.T) {
	p := referenceParams()
	opts := DefaultOptions()
	opts.MaxIterations = 2
	opts.Tolerance = 1e-15

	sol, err := NewSolver(opts, &noopLogger{}).Solve(context.Background(), p, 42)
	require.NoError(t, err)

	assert.Equal(t, model.StatusMaxIterations, sol.Status)
	assert.Equal(t, 2, sol.Iterations)
	size := opts.populationSize(p.Periods)
	assert.Equal(t, size*(sol.Iterations+1), sol.FunctionEvals)
	require.NoError(t, sol.Schedule.CheckFeasible(p, 1e-9))
	assert.LessOrEqual(t, sol.Breakdown.Total, sol.TWAPCost, "TWAP is a member of the initial population")
}

func TestSolveRejectsInvalidInput(t *testing.T) {
	solver := NewSolver(DefaultOptions(), &noopLogger{})

	p := referenceParams()
	p.Volatility = -0.1
	_, err := solver.Solve(context.Background(), p, 1)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))

	p = referenceParams()
	p.MaxTradeFraction = 0.05 // ten periods at 5% cannot fill the order
	_, err = solver.Solve(context.Background(), p, 1)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))

	opts := DefaultOptions()
	opts.Crossover = 1.5
	_, err = NewSolver(opts, &noopLogger{}).Solve(context.Background(), referenceParams(), 1)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestSolveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSolver(DefaultOptions(), &noopLogger{}).Solve(ctx, referenceParams(), 42)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	mutate := []func(*Options){
		func(o *Options) { o.MaxIterations = 0 },
		func(o *Options) { o.PopulationMultiplier = 0 },
		func(o *Options) { o.MutationMin = 0 },
		func(o *Options) { o.MutationMax = 0.4 },
		func(o *Options) { o.MutationMax = 2.5 },
		func(o *Options) { o.Crossover = -0.1 },
		func(o *Options) { o.Tolerance = 0 },
	}
	for i, m := range mutate {
		o := DefaultOptions()
		m(&o)
		assert.ErrorIs(t, o.Validate(), apperrors.ErrConfiguration, "case %d", i)
	}
}

func TestPopulationSizeHasAFloor(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 150, o.populationSize(10))
	o.PopulationMultiplier = 1
	assert.Equal(t, minPopulation, o.populationSize(2))
}

func TestPickDonorsAreDistinct(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for size := 3; size <= 8; size++ {
		for target := 0; target < size; target++ {
			for i := 0; i < 200; i++ {
				r1, r2 := pickDonors(rng, size, target)
				assert.NotEqual(t, r1, target)
				assert.NotEqual(t, r2, target)
				assert.NotEqual(t, r1, r2)
				assert.True(t, r1 >= 0 && r1 < size && r2 >= 0 && r2 < size)
			}
		}
	}
}

func BenchmarkSolve(b *testing.B) {
	p := referenceParams()
	opts := DefaultOptions()
	opts.MaxIterations = 20
	solver := NewSolver(opts, &noopLogger{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = solver.Solve(context.Background(), p, uint64(i))
	}
}
