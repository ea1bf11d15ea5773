package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestTelemetrySetup(t *testing.T) {
	var out bytes.Buffer
	tel, err := Setup("test-service", Options{
		ExportTraces: true,
		ExportLogs:   true,
		Writer:       &out,
		Registerer:   prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	assert.NotNil(t, otel.GetTracerProvider())
	assert.NotNil(t, otel.GetMeterProvider())
	assert.NotNil(t, GetTracer("test-tracer"))
	assert.NotNil(t, GetMeter("test-meter"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestMetricsExportedToRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel, err := Setup("metrics-test", Options{Registerer: reg})
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	ctx := context.Background()
	m := GetGlobalMetrics()
	m.RecordSolve(ctx, "converged", 150*time.Millisecond, 3000)
	m.RecordScenario(ctx, "AAPL", true)
	m.RecordScenario(ctx, "AAPL", false)
	m.SetBatchMeanCost("AAPL", 23383000)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "optexec_solves")
	assert.Contains(t, joined, "optexec_scenarios")
	assert.Contains(t, joined, "optexec_batch_mean_cost")
}

func TestMetricsHolderWithoutSetup(t *testing.T) {
	m := GetGlobalMetrics()
	assert.NotPanics(t, func() {
		m.RecordSolve(context.Background(), "max-iterations-reached", time.Second, 10)
		m.RecordScenario(context.Background(), "MSFT", false)
	})

	m.SetBatchMeanCost("MSFT", 1.5)
	snapshot := m.GetBatchMeanCost()
	assert.Equal(t, 1.5, snapshot["MSFT"])

	snapshot["MSFT"] = 99
	assert.Equal(t, 1.5, m.GetBatchMeanCost()["MSFT"], "snapshot is a copy")
}
