package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var ErrInvalidInterval = errors.New("schedule interval must be positive")

// Task is one unit of periodic work. The context is cancelled when the
// schedule is disarmed.
type Task func(ctx context.Context)

// Schedule runs a task periodically and on demand, never two at once.
// A timer tick that fires while a run is in flight is skipped; RunNow waits
// for the in-flight run and then runs.
type Schedule struct {
	task Task
	sem  *semaphore.Weighted

	mu       sync.Mutex
	cancel   context.CancelFunc
	interval time.Duration
	wg       sync.WaitGroup

	skipped atomic.Uint64
	runs    atomic.Uint64
}

func New(task Task) *Schedule {
	return &Schedule{
		task: task,
		sem:  semaphore.NewWeighted(1),
	}
}

// Arm starts the timer. It is a no-op while already armed. Ticks run with a
// context derived from parent.
func (s *Schedule) Arm(parent context.Context, interval time.Duration) error {
	if s == nil {
		return nil
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if parent == nil {
		parent = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.interval = interval
	s.wg.Add(1)
	go s.loop(ctx, interval)
	return nil
}

// Disarm cancels the timer and the context of any tick in flight. It does
// not wait for the loop to exit, so a task may disarm its own schedule.
func (s *Schedule) Disarm() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.interval = 0
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until every loop started by Arm has exited.
func (s *Schedule) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// Interval is the armed period, or zero when disarmed.
func (s *Schedule) Interval() time.Duration {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// RunNow runs the task immediately, after any run already in flight.
func (s *Schedule) RunNow(ctx context.Context) error {
	if s == nil || s.task == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	s.runs.Add(1)
	s.task(ctx)
	return nil
}

// Skipped reports how many timer ticks were dropped because a run was in
// flight.
func (s *Schedule) Skipped() uint64 {
	if s == nil {
		return 0
	}
	return s.skipped.Load()
}

func (s *Schedule) Runs() uint64 {
	if s == nil {
		return 0
	}
	return s.runs.Load()
}

func (s *Schedule) loop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.tick(ctx)
	}
}

func (s *Schedule) tick(ctx context.Context) {
	if s.task == nil {
		return
	}
	if !s.sem.TryAcquire(1) {
		s.skipped.Add(1)
		return
	}
	defer s.sem.Release(1)
	s.runs.Add(1)
	s.task(ctx)
}
