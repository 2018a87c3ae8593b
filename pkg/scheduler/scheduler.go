// Package scheduler provides deferred one-shot task execution.
// Used to release temporary fax artifacts after a grace period so the
// provider's asynchronous content fetch has time to complete.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type pendingTask struct {
	timer *time.Timer
	fn    func()
}

// Scheduler runs named tasks after a delay. Scheduling a task under an
// already-pending name replaces the pending one. Safe for concurrent use.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingTask
	closed  bool
	wg      sync.WaitGroup

	// Metrics
	tasksScheduled int64
	tasksRun       int64
	tasksCancelled int64
}

// New creates a scheduler
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger:  logger,
		pending: make(map[string]*pendingTask),
	}
}

// Schedule queues fn to run once after delay. A non-positive delay runs fn
// immediately on the calling goroutine. After Stop, Schedule runs fn
// immediately as well: shutdown must not leave artifacts behind.
func (s *Scheduler) Schedule(name string, delay time.Duration, fn func()) {
	atomic.AddInt64(&s.tasksScheduled, 1)

	s.mu.Lock()
	if s.closed || delay <= 0 {
		s.mu.Unlock()
		s.run(name, fn)
		return
	}

	if prev, ok := s.pending[name]; ok {
		delete(s.pending, name)
		if prev.timer.Stop() {
			s.wg.Done()
			atomic.AddInt64(&s.tasksCancelled, 1)
		}
	}

	s.wg.Add(1)
	task := &pendingTask{fn: fn}
	task.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		if cur, ok := s.pending[name]; ok && cur == task {
			delete(s.pending, name)
		}
		s.mu.Unlock()

		s.run(name, fn)
	})
	s.pending[name] = task
	s.mu.Unlock()
}

// Cancel removes a pending task. Returns false when no task is pending
// under that name, which is not an error: the target may already have run.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.pending[name]
	if !ok {
		return false
	}
	delete(s.pending, name)
	if task.timer.Stop() {
		s.wg.Done()
		atomic.AddInt64(&s.tasksCancelled, 1)
		return true
	}
	return false
}

// Pending returns the number of tasks waiting to fire
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop fires all pending tasks immediately and waits for in-flight ones to
// finish. Cleanup tasks are idempotent, so running them early is safe.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	drained := make([]*pendingTask, 0, len(s.pending))
	names := make([]string, 0, len(s.pending))
	for name, task := range s.pending {
		drained = append(drained, task)
		names = append(names, name)
		delete(s.pending, name)
	}
	s.mu.Unlock()

	for i, task := range drained {
		if task.timer.Stop() {
			s.run(names[i], task.fn)
			s.wg.Done()
		}
	}
	s.wg.Wait()

	s.logger.Info("scheduler stopped",
		zap.Int64("scheduled", atomic.LoadInt64(&s.tasksScheduled)),
		zap.Int64("run", atomic.LoadInt64(&s.tasksRun)),
		zap.Int64("cancelled", atomic.LoadInt64(&s.tasksCancelled)),
	)
}

// Stats returns scheduled/run/cancelled counters
func (s *Scheduler) Stats() (scheduled, run, cancelled int64) {
	return atomic.LoadInt64(&s.tasksScheduled),
		atomic.LoadInt64(&s.tasksRun),
		atomic.LoadInt64(&s.tasksCancelled)
}

func (s *Scheduler) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("deferred task panicked",
				zap.String("task", name),
				zap.Any("panic", r))
		}
	}()
	fn()
	atomic.AddInt64(&s.tasksRun, 1)
}
