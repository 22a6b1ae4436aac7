package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	memoryBuffer   = 64
	maxAttempts    = 5
	retryBackoff   = 250 * time.Millisecond
	enqueueTimeout = 5 * time.Second
)

type queuedTask struct {
	task     Task
	attempts int
}

// Memory is an in-process queue for development and tests. Tasks survive
// handler failures (requeued with backoff) but not a process restart.
type Memory struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	tasks      chan queuedTask
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

func NewMemory(dispatcher *Dispatcher, logger *slog.Logger) *Memory {
	return &Memory{
		dispatcher: dispatcher,
		logger:     logger,
		tasks:      make(chan queuedTask, memoryBuffer),
		done:       make(chan struct{}),
	}
}

var _ Queue = (*Memory)(nil)

// Enqueue hands a task to the worker pool. Blocks briefly when the buffer is
// full rather than dropping the task.
func (m *Memory) Enqueue(ctx context.Context, task Task) error {
	select {
	case <-m.done:
		return errors.New("queue: stopped")
	default:
	}

	timer := time.NewTimer(enqueueTimeout)
	defer timer.Stop()

	select {
	case m.tasks <- queuedTask{task: task}:
		return nil
	case <-m.done:
		return errors.New("queue: stopped")
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("queue: buffer full")
	}
}

// Start launches the worker goroutines.
func (m *Memory) Start(workers int) {
	m.startOnce.Do(func() {
		if workers <= 0 {
			workers = 2
		}
		m.logger.Info("starting in-process task workers", slog.Int("workers", workers))
		for i := 0; i < workers; i++ {
			m.wg.Add(1)
			go m.worker()
		}
	})
}

// Stop signals the workers and waits for in-flight tasks to finish.
// Buffered tasks that never ran are lost; durability needs the AMQP queue.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Info("stopping in-process task workers")
		close(m.done)
		m.wg.Wait()
	})
}

func (m *Memory) worker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case qt := <-m.tasks:
			if err := m.dispatcher.Handle(context.Background(), qt.task); err != nil {
				m.retry(qt, err)
			}
		}
	}
}

// retry schedules a failed task for redelivery. The backoff wait runs in its
// own goroutine so the worker keeps draining other tasks in the meantime.
func (m *Memory) retry(qt queuedTask, err error) {
	qt.attempts++
	if qt.attempts >= maxAttempts {
		m.logger.Error("dropping task after repeated failures",
			slog.String("kind", qt.task.Kind),
			slog.Int("attempts", qt.attempts),
			slog.String("error", err.Error()))
		return
	}

	m.logger.Warn("task failed, requeueing",
		slog.String("kind", qt.task.Kind),
		slog.Int("attempt", qt.attempts),
		slog.String("error", err.Error()))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		timer := time.NewTimer(time.Duration(qt.attempts) * retryBackoff)
		defer timer.Stop()
		select {
		case <-m.done:
			return
		case <-timer.C:
		}
		select {
		case m.tasks <- qt:
		case <-m.done:
		}
	}()
}
