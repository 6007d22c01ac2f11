// Package scheduler runs tasks on a fixed set of lanes. Every lane has exactly one worker
// goroutine, so tasks on the same lane run strictly in submission order while lanes run
// concurrently. A phase-based Barrier tracks completion.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/ethereum-optimism/infra/op-lanes/metrics"
	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// ErrSchedulerClosed is returned when scheduling on a closed scheduler
var ErrSchedulerClosed = errors.New("scheduler closed")

// Task is a unit of work executed on a lane worker
type Task func()

// LaneStats reports the counters of one lane
type LaneStats struct {
	Lane      int
	Scheduled int64
	Completed int64
	Panics    int64
}

// Scheduler dispatches tasks to single-goroutine lane workers
type Scheduler struct {
	lanes   []*laneWorker
	barrier *Barrier
	group   errgroup.Group
	log     log.Logger

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// New starts one worker per lane
func New(lanes int, logger log.Logger) (*Scheduler, error) {
	if lanes < 1 {
		return nil, fmt.Errorf("at least one lane is required, got %d", lanes)
	}
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	s := &Scheduler{
		lanes:   make([]*laneWorker, lanes),
		barrier: NewBarrier(),
		log:     logger.New("component", "lane-scheduler"),
	}
	for i := range s.lanes {
		w := &laneWorker{
			id:      i,
			barrier: s.barrier,
			log:     s.log.New("worker", fmt.Sprintf("lane-%d", i)),
		}
		w.cond = sync.NewCond(&w.mu)
		s.lanes[i] = w
		s.group.Go(w.run)
	}
	s.log.Debug("Lane workers started", "lanes", lanes)
	return s, nil
}

// Schedule registers task with the completion barrier and queues it on lane. It never blocks
// on the task itself. A lane outside [0, Lanes()) yields ErrIllegalLane and nothing is registered.
func (s *Scheduler) Schedule(task Task, lane int) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if lane < 0 || lane >= len(s.lanes) {
		return fmt.Errorf("lane %d of %d: %w", lane, len(s.lanes), types.ErrIllegalLane)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	token := s.barrier.Register()
	s.lanes[lane].enqueue(queuedTask{task: task, token: token})
	metrics.RecordScheduled(lane)
	return nil
}

// AwaitCompletion blocks until every task scheduled since the previous call has finished.
// With nothing scheduled it returns immediately. If ctx ends first the returned error wraps
// types.ErrInterruptedWait and the call must not be retried for the same tasks.
func (s *Scheduler) AwaitCompletion(ctx context.Context) error {
	s.log.Debug("Awaiting lane completion", "phase", s.barrier.Phase())
	return s.barrier.Await(ctx)
}

// Close stops accepting tasks, lets the workers drain their queues and waits for them
func (s *Scheduler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		for _, w := range s.lanes {
			w.close()
		}
		err = s.group.Wait()
		s.log.Debug("Lane workers stopped")
	})
	return err
}

// Lanes returns the number of lanes
func (s *Scheduler) Lanes() int {
	return len(s.lanes)
}

// Stats returns per-lane counters
func (s *Scheduler) Stats() []LaneStats {
	stats := make([]LaneStats, len(s.lanes))
	for i, w := range s.lanes {
		stats[i] = LaneStats{
			Lane:      i,
			Scheduled: w.scheduled.Load(),
			Completed: w.completed.Load(),
			Panics:    w.panics.Load(),
		}
	}
	return stats
}

type queuedTask struct {
	task  Task
	token Token
}

type laneWorker struct {
	id      int
	barrier *Barrier
	log     log.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []queuedTask
	closed bool

	scheduled atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

func (w *laneWorker) enqueue(t queuedTask) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, t)
	w.scheduled.Add(1)
	w.cond.Signal()
}

func (w *laneWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.cond.Broadcast()
}

func (w *laneWorker) next() (queuedTask, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && !w.closed {
		w.cond.Wait()
	}
	if len(w.queue) == 0 {
		return queuedTask{}, false
	}
	t := w.queue[0]
	w.queue[0] = queuedTask{}
	w.queue = w.queue[1:]
	return t, true
}

func (w *laneWorker) run() error {
	w.log.Debug("Worker starting")
	defer w.log.Debug("Worker exiting")
	for {
		t, ok := w.next()
		if !ok {
			return nil
		}
		w.execute(t)
	}
}

// execute runs one task and always arrives at the barrier, even when the task panics
func (w *laneWorker) execute(t queuedTask) {
	defer func() {
		w.completed.Add(1)
		if err := w.barrier.Arrive(t.token); err != nil {
			w.log.Error("Barrier arrival failed", "err", err)
			metrics.RecordErrorDetails("barrier_arrive", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			w.panics.Add(1)
			metrics.RecordWorkerPanic(w.id)
			w.log.Error("Task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	t.task()
}
