// Package pipeline runs background work for recording sessions on a fixed
// set of workers.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

var ErrPoolClosed = errors.New("worker pool closed")

type Task func()

type WorkerPool struct {
	workers   int
	taskQueue chan Task
	quit      chan struct{}
	logger    *log.Logger

	mu       sync.RWMutex
	closed   bool
	started  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool(workers, queueSize int, logger *log.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers * 2
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		quit:      make(chan struct{}),
		logger:    logger.With("component", "pipeline"),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started || wp.closed {
		return
	}
	wp.started = true
	wp.logger.Info("Starting worker pool", "workers", wp.workers)
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Submit queues task, blocking while the queue is full.
func (wp *WorkerPool) Submit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}
	select {
	case wp.taskQueue <- task:
		return nil
	case <-wp.quit:
		return ErrPoolClosed
	}
}

// Stop waits for queued tasks to finish.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() { close(wp.quit) })

	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.taskQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.logger.Info("Worker pool stopped")
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			wp.run(id, task)

		case <-ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("Task panicked", "worker", id, "panic", r)
		}
	}()
	task()
}
