// Package provision runs best-effort background tasks, primarily LMS user
// creation after an approval. Tasks are fire-and-forget: outcomes are logged,
// never reported back to the enqueuing request.
package provision

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one unit of background work. Label identifies it in logs.
type Task struct {
	Label string
	Run   func(ctx context.Context) error
}

// Worker consumes tasks from a bounded inbox. Enqueues on a full inbox are
// dropped with a warning so callers never block on a slow downstream.
type Worker struct {
	logger *slog.Logger
	inbox  chan Task

	wg sync.WaitGroup
}

func NewWorker(logger *slog.Logger, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		logger: logger,
		inbox:  make(chan Task, queueSize),
	}
}

// Enqueue hands a task to the worker without blocking.
func (w *Worker) Enqueue(task Task) {
	select {
	case w.inbox <- task:
	default:
		w.logger.Warn("provision queue full, task dropped", "task", task.Label)
	}
}

// Run processes tasks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.wg.Add(1)
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-w.inbox:
			if err := task.Run(ctx); err != nil {
				w.logger.Error("provision task failed", "task", task.Label, "error", err)
				continue
			}
			w.logger.Info("provision task completed", "task", task.Label)
		}
	}
}

// Wait blocks until Run has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}
