// Package bootstrap wires configuration, logging, telemetry and the domain
// components into an application and runs it until done or interrupted.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"optimal_execution/internal/calibration"
	"optimal_execution/internal/config"
	"optimal_execution/internal/core"
	"optimal_execution/internal/infrastructure/metrics"
	"optimal_execution/internal/liquidity"
	"optimal_execution/internal/optimizer"
	"optimal_execution/internal/simulation"
	"optimal_execution/internal/store"
	apperrors "optimal_execution/pkg/errors"
	"optimal_execution/pkg/logging"
	"optimal_execution/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// ServiceName identifies the application in telemetry.
const ServiceName = "optexec"

// App represents the application context and holds core dependencies.
type App struct {
	Cfg          *config.Config
	Logger       core.ILogger
	Solver       *optimizer.Solver
	Calibrations *calibration.FileSource
	Calibrator   *liquidity.Calibrator
	Runner       *simulation.Runner
	Store        *store.SQLiteStore // nil when persistence is disabled

	zap       *logging.ZapLogger
	telemetry *telemetry.Telemetry
	metrics   *metrics.Server // nil when metrics are disabled
}

// NewApp creates a new App instance by bootstrapping all dependencies. Logs
// and exported telemetry go to logOut.
func NewApp(cfg *config.Config, logOut io.Writer) (*App, error) {
	zapLogger, err := logging.NewZapLoggerWithWriter(cfg.System.LogLevel, logOut)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logging.SetGlobalLogger(zapLogger)
	logger := zapLogger.WithField("service", ServiceName)

	registry := prometheus.NewRegistry()
	tel, err := telemetry.Setup(ServiceName, telemetry.Options{
		ExportTraces: cfg.Telemetry.ExportTraces,
		ExportLogs:   cfg.Telemetry.ExportLogs,
		Writer:       logOut,
		Registerer:   registry,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	app := &App{
		Cfg:          cfg,
		Logger:       logger,
		zap:          zapLogger,
		telemetry:    tel,
		Calibrations: calibration.NewFileSource(cfg.Data.CalibrationDir),
	}

	volumes, err := loadVolumes(cfg.Data.ADVFile, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Calibrator, err = liquidity.NewCalibrator(cfg.Liquidity.ToCalibratorConfig(), volumes, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("liquidity calibrator: %w", err)
	}

	app.Solver = optimizer.NewSolver(cfg.Optimizer.ToOptions(), logger)
	app.Runner = simulation.NewRunner(cfg.ToRunnerConfig(), app.Solver, app.Calibrations, app.Calibrator, logger)

	if cfg.Data.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Data.DatabasePath), 0o755); err != nil {
			app.Close()
			return nil, fmt.Errorf("database directory: %w", err)
		}
		app.Store, err = store.NewSQLiteStore(cfg.Data.DatabasePath)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	if cfg.Telemetry.EnableMetrics {
		app.metrics = metrics.NewServer(cfg.Telemetry.MetricsPort, registry, logger)
	}

	return app, nil
}

// loadVolumes returns the ADV table, or nil when none is configured or the
// file does not exist; the calibrator then reports data unavailability.
func loadVolumes(path string, logger core.ILogger) (core.IADVSource, error) {
	if path == "" {
		return nil, nil
	}
	table, err := calibration.LoadADVFile(path)
	if err != nil {
		if errors.Is(err, apperrors.ErrDataUnavailable) {
			logger.Warn("ADV file not found, liquidity bounds will use the fallback", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("adv file: %w", err)
	}
	return table, nil
}

// Runner is an interface for components that can be run and stopped gracefully.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Run executes job with signal handling. The metrics server, when enabled,
// runs alongside and stops once job returns.
func (a *App) Run(ctx context.Context, job Runner) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	auxCtx, stopAux := context.WithCancel(ctx)
	defer stopAux()

	if a.metrics != nil {
		g.Go(func() error {
			return a.metrics.Run(auxCtx)
		})
	}

	g.Go(func() error {
		defer stopAux()
		return job.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			a.Logger.Warn("application interrupted")
		} else {
			a.Logger.Error("application stopped with error", "error", err)
		}
		return err
	}
	return nil
}

// Close releases the pool, the store and the telemetry providers.
func (a *App) Close() {
	if a.Runner != nil {
		a.Runner.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("failed to close store", "error", err)
		}
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.Logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
	_ = a.zap.Sync()
}
