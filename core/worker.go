package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"logwarden/metrics"
)

// WorkerPool provides a shared pool for the pipeline's periodic tasks
// (correlation sweeps, sampler ticks) and bulk ingestion work.
type WorkerPool struct {
	workers  int
	taskCh   chan func()
	wg       sync.WaitGroup
	logger   *zap.SugaredLogger
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	mu       sync.RWMutex
	poolName string
}

// Errors
var (
	ErrWorkerPoolNotRunning = errors.New("worker pool is not running")
	ErrWorkerPoolQueueFull  = errors.New("worker pool task queue is full")
)

// NewWorkerPool creates a worker pool. Workers start when Start is called;
// cancelling parentCtx stops them.
func NewWorkerPool(parentCtx context.Context, workers, queueSize int, poolName string, logger *zap.SugaredLogger) *WorkerPool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if poolName == "" {
		poolName = "default"
	}

	ctx, cancel := context.WithCancel(parentCtx)
	return &WorkerPool{
		workers:  workers,
		taskCh:   make(chan func(), queueSize),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		poolName: poolName,
	}
}

// Start begins processing tasks
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running {
		return
	}
	wp.running = true
	wp.logger.Infow("Starting worker pool", "pool", wp.poolName, "workers", wp.workers)
	metrics.WorkerPoolActiveWorkers.WithLabelValues(wp.poolName).Set(float64(wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop shuts the pool down, waiting up to 30s for in-flight tasks
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.running {
		return
	}
	wp.running = false
	wp.cancel()
	close(wp.taskCh)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Infow("Worker pool stopped", "pool", wp.poolName)
	case <-time.After(30 * time.Second):
		wp.logger.Errorw("Worker pool shutdown timed out, goroutines leaked", "pool", wp.poolName)
	}
}

// Submit queues a task; returns an error rather than blocking when the queue is full
func (wp *WorkerPool) Submit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.running {
		return ErrWorkerPoolNotRunning
	}

	select {
	case wp.taskCh <- task:
		metrics.WorkerPoolQueueSize.WithLabelValues(wp.poolName).Set(float64(len(wp.taskCh)))
		return nil
	default:
		return ErrWorkerPoolQueueFull
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case task, ok := <-wp.taskCh:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						wp.logger.Errorw("Task panicked in worker",
							"pool", wp.poolName,
							"worker_id", id,
							"panic", r)
					}
				}()
				task()
				metrics.WorkerPoolTasksProcessed.WithLabelValues(wp.poolName).Inc()
			}()
		}
	}
}
