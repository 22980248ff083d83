package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Task is a unit of work run by the queue workers
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Queue runs tasks on a fixed pool of workers
type Queue struct {
	tasks       chan Task
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	shutdown    bool
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewQueue creates a queue with the given worker count and buffer size
func NewQueue(workerCount, buffer int, logger *zap.Logger) *Queue {
	if workerCount <= 0 {
		workerCount = 4
	}
	if buffer <= 0 {
		buffer = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		tasks:       make(chan Task, buffer),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start starts the worker pool
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.started = true
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.run(id, task)
		}
	}
}

func (q *Queue) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("event task panicked",
				zap.Int("worker", id),
				zap.String("task", task.Name),
				zap.Any("panic", r))
		}
	}()

	if err := task.Fn(q.ctx); err != nil {
		q.logger.Warn("event task failed",
			zap.Int("worker", id),
			zap.String("task", task.Name),
			zap.Error(err))
	}
}

// Enqueue adds a task, blocking while the buffer is full
func (q *Queue) Enqueue(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.started {
		return fmt.Errorf("queue not started")
	}
	if q.shutdown {
		return fmt.Errorf("queue shut down")
	}

	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return fmt.Errorf("queue closed")
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if !q.started || q.shutdown {
		q.mu.Unlock()
		return
	}
	q.shutdown = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
}

// Stop cancels running tasks and returns without draining the buffer
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}
