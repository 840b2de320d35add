package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
	"github.com/stylusfm/stylus/pkg/logger"
)

// queuedTask is one unit of background work.
type queuedTask struct {
	id  string
	run func(ctx context.Context)
}

// WorkerPool executes queued task runs with bounded concurrency,
// decoupled from request handling. Each task is picked up by exactly
// one worker and runs to completion there.
type WorkerPool struct {
	queue chan queuedTask
	log   *logger.Logger
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewWorkerPool creates a pool with the given worker count and queue
// capacity and starts its workers. The context is handed to every task
// run; canceling it interrupts in-flight work.
func NewWorkerPool(ctx context.Context, workers, queueSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.Nop()
	}

	wp := &WorkerPool{
		queue: make(chan queuedTask, queueSize),
		log:   log,
	}
	wp.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go wp.worker(ctx, i)
	}
	return wp
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.With(zap.Int("worker", id))
	for task := range wp.queue {
		log.Debug("task picked up", zap.String("task_id", task.id))
		task.run(ctx)
		log.Debug("task finished", zap.String("task_id", task.id))
	}
}

// Enqueue hands a task run to the pool. It never blocks the caller: a
// full queue or a closed pool is a scheduling failure the caller must
// surface.
func (wp *WorkerPool) Enqueue(id string, run func(ctx context.Context)) error {
	if run == nil {
		return pkgerrors.NewScheduleError("task run must not be nil", nil)
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return pkgerrors.NewScheduleError("worker pool is shut down", nil)
	}
	select {
	case wp.queue <- queuedTask{id: id, run: run}:
		return nil
	default:
		return pkgerrors.NewScheduleError("task queue is full", nil)
	}
}

// Close stops intake and blocks until all queued tasks have drained.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.queue)
	wp.mu.Unlock()

	wp.wg.Wait()
}
