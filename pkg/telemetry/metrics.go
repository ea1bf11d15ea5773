package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names
const (
	MetricSolvesTotal        = "optexec_solves_total"
	MetricSolveDuration      = "optexec_solve_duration_seconds"
	MetricFunctionEvalsTotal = "optexec_function_evals_total"
	MetricScenariosTotal     = "optexec_scenarios_total"
	MetricBatchMeanCost      = "optexec_batch_mean_cost"
)

// Scenario outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	SolvesTotal        metric.Int64Counter
	SolveDuration      metric.Float64Histogram
	FunctionEvalsTotal metric.Int64Counter
	ScenariosTotal     metric.Int64Counter
	BatchMeanCost      metric.Float64ObservableGauge

	// State for observable gauges
	mu           sync.RWMutex
	meanCostMap  map[string]float64
	registration metric.Registration
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder. Until InitMetrics is
// called with a real meter its instruments are no-ops.
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			meanCostMap: make(map[string]float64),
		}
		_ = globalMetrics.InitMetrics(noop.NewMeterProvider().Meter("optexec"))
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.SolvesTotal, err = meter.Int64Counter(MetricSolvesTotal, metric.WithDescription("Optimizer invocations by terminal status"))
	if err != nil {
		return err
	}

	m.SolveDuration, err = meter.Float64Histogram(MetricSolveDuration, metric.WithDescription("Wall time of one optimizer invocation"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	m.FunctionEvalsTotal, err = meter.Int64Counter(MetricFunctionEvalsTotal, metric.WithDescription("Cost model evaluations performed by the optimizer"))
	if err != nil {
		return err
	}

	m.ScenariosTotal, err = meter.Int64Counter(MetricScenariosTotal, metric.WithDescription("Monte Carlo scenarios by ticker and outcome"))
	if err != nil {
		return err
	}

	m.BatchMeanCost, err = meter.Float64ObservableGauge(MetricBatchMeanCost, metric.WithDescription("Mean execution cost of the latest batch per ticker"))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registration != nil {
		_ = m.registration.Unregister()
	}
	m.registration, err = meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for ticker, val := range m.meanCostMap {
			obs.ObserveFloat64(m.BatchMeanCost, val, metric.WithAttributes(attribute.String("ticker", ticker)))
		}
		return nil
	}, m.BatchMeanCost)
	return err
}

// RecordSolve records one finished optimizer invocation.
func (m *MetricsHolder) RecordSolve(ctx context.Context, status string, elapsed time.Duration, evals int) {
	m.SolvesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.SolveDuration.Record(ctx, elapsed.Seconds())
	m.FunctionEvalsTotal.Add(ctx, int64(evals))
}

// RecordScenario records the outcome of one Monte Carlo scenario.
func (m *MetricsHolder) RecordScenario(ctx context.Context, ticker string, success bool) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	m.ScenariosTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ticker", ticker),
		attribute.String("outcome", outcome),
	))
}

func (m *MetricsHolder) SetBatchMeanCost(ticker string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meanCostMap[ticker] = value
}

func (m *MetricsHolder) GetBatchMeanCost() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]float64, len(m.meanCostMap))
	for k, v := range m.meanCostMap {
		res[k] = v
	}
	return res
}
