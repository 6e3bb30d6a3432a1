package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool manages a pool of worker goroutines that process tasks from a
// task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	taskQueue   TaskQueueReader
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger

	// errorHandler is called when a task execution fails.
	// If nil, errors are only logged.
	errorHandler func(task Task, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool.
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 1.
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{WorkerCount: 2}
}

// NewWorkerPool creates a new worker pool with the specified configuration.
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.With("component", "worker_pool"),
	}
}

// SetErrorHandler sets a custom error handler for task execution failures.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the worker goroutines. Each worker drains the queue until
// the queue channel closes or the pool context is canceled.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels in-flight task contexts and waits for all workers to exit.
// The task queue should be closed before calling Stop so workers drain
// remaining work first.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	log := p.logger.With(slog.Int("worker_id", id))
	log.Debug("worker started")

	for {
		select {
		case task, ok := <-p.taskQueue.GetChannel():
			if !ok {
				log.Debug("task channel closed, worker exiting")
				return
			}
			p.execute(task, log)
		case <-p.ctx.Done():
			log.Debug("pool context canceled, worker exiting")
			return
		}
	}
}

func (p *WorkerPool) execute(t Task, log *slog.Logger) {
	log.Debug("executing task", "task_id", t.ID(), "task_type", t.Type())

	if err := t.Execute(p.ctx); err != nil {
		log.Error("task execution failed",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		if p.errorHandler != nil {
			p.errorHandler(t, err)
		}
		return
	}
	log.Debug("task completed", "task_id", t.ID(), "task_type", t.Type())
}
