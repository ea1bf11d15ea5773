package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"optimal_execution/internal/core"

	"github.com/stretchr/testify/assert"
)

type noopLogger struct{}

func (l *noopLogger) Debug(msg string, fields ...interface{})               {}
func (l *noopLogger) Info(msg string, fields ...interface{})                {}
func (l *noopLogger) Warn(msg string, fields ...interface{})                {}
func (l *noopLogger) Error(msg string, fields ...interface{})               {}
func (l *noopLogger) Fatal(msg string, fields ...interface{})               {}
func (l *noopLogger) WithField(key string, value interface{}) core.ILogger  { return l }
func (l *noopLogger) WithFields(fields map[string]interface{}) core.ILogger { return l }

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)

	pool := NewWorkerPool(PoolConfig{Name: "defaults"}, &noopLogger{})
	defer pool.Stop()
	assert.Equal(t, DefaultWorkers(), pool.Workers())
}

func TestRunAllIsABarrier(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Name: "barrier", MaxWorkers: 3, MaxCapacity: 10}, &noopLogger{})
	defer pool.Stop()

	results := make([]int, 50)
	tasks := make([]func(), len(results))
	for i := range tasks {
		tasks[i] = func() {
			time.Sleep(time.Millisecond)
			results[i] = i * i
		}
	}

	pool.RunAll(tasks)

	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := NewWorkerPool(PoolConfig{Name: "bounded", MaxWorkers: workers, MaxCapacity: 100}, &noopLogger{})
	defer pool.Stop()

	var running, peak int64
	var mu sync.Mutex
	tasks := make([]func(), 20)
	for i := range tasks {
		tasks[i] = func() {
			n := atomic.AddInt64(&running, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		}
	}

	pool.RunAll(tasks)
	assert.LessOrEqual(t, peak, int64(workers))
}

func TestRunAllEmpty(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Name: "empty", MaxWorkers: 1}, nil)
	defer pool.Stop()

	assert.NotPanics(t, func() { pool.RunAll(nil) })
}

func TestSubmitAndWait(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Name: "wait", MaxWorkers: 2}, &noopLogger{})
	defer pool.Stop()

	var done atomic.Bool
	pool.SubmitAndWait(func() { done.Store(true) })
	assert.True(t, done.Load())

	stats := pool.Stats()
	assert.Contains(t, stats, "submitted_tasks")
	assert.Contains(t, stats, "failed_tasks")
}
