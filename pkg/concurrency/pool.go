package concurrency

import (
	"fmt"
	"runtime"
	"time"

	"optimal_execution/internal/core"
	"optimal_execution/pkg/logging"

	"github.com/alitto/pond"
)

// PoolConfig holds configuration for a worker pool
type PoolConfig struct {
	Name        string
	MaxWorkers  int // <= 0 means DefaultWorkers()
	MaxCapacity int
	IdleTimeout time.Duration
	NonBlocking bool // If true, Submit() returns error instead of blocking when full
}

// DefaultWorkers leaves one core to the coordinating goroutine.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

// WorkerPool wraps alitto/pond with monitoring and standardized config
type WorkerPool struct {
	pool   *pond.WorkerPool
	config PoolConfig
	logger core.ILogger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(cfg PoolConfig, logger core.ILogger) *WorkerPool {
	logger = logging.OrNop(logger)
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultWorkers()
	}
	if cfg.MaxCapacity <= 0 {
		cfg.MaxCapacity = 1000
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	pool := pond.New(
		cfg.MaxWorkers,
		cfg.MaxCapacity,
		pond.MinWorkers(1),
		pond.IdleTimeout(cfg.IdleTimeout),
		pond.Strategy(pond.Balanced()),
		pond.PanicHandler(func(p interface{}) {
			logger.Error("Worker pool panic recovered", "pool", cfg.Name, "panic", p)
		}),
	)

	return &WorkerPool{
		pool:   pool,
		config: cfg,
		logger: logger.WithField("component", "worker_pool").WithField("pool", cfg.Name),
	}
}

// Workers returns the configured upper bound of concurrent workers.
func (wp *WorkerPool) Workers() int {
	return wp.config.MaxWorkers
}

// Submit adds a task to the pool
func (wp *WorkerPool) Submit(task func()) error {
	if wp.config.NonBlocking {
		if !wp.pool.TrySubmit(task) {
			return fmt.Errorf("worker pool '%s' is full (capacity: %d)", wp.config.Name, wp.config.MaxCapacity)
		}
		return nil
	}

	wp.pool.Submit(task)
	return nil
}

// SubmitAndWait submits a task and waits for it to complete
func (wp *WorkerPool) SubmitAndWait(task func()) {
	wp.pool.SubmitAndWait(task)
}

// RunAll runs every task on the pool and returns once all of them finished.
// It is the barrier used by batch workloads.
func (wp *WorkerPool) RunAll(tasks []func()) {
	group := wp.pool.Group()
	for _, task := range tasks {
		group.Submit(task)
	}
	group.Wait()
	wp.logger.Debug("Task group finished", "tasks", len(tasks))
}

// Stop stops the pool gracefully
func (wp *WorkerPool) Stop() {
	wp.pool.StopAndWait()
}

// Stats returns pool statistics
func (wp *WorkerPool) Stats() map[string]interface{} {
	return map[string]interface{}{
		"running_workers":  wp.pool.RunningWorkers(),
		"idle_workers":     wp.pool.IdleWorkers(),
		"submitted_tasks":  wp.pool.SubmittedTasks(),
		"waiting_tasks":    wp.pool.WaitingTasks(),
		"successful_tasks": wp.pool.SuccessfulTasks(),
		"failed_tasks":     wp.pool.FailedTasks(),
	}
}
