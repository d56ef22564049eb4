package board

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one periodic unit of work. Errors are logged and retried on
// the next tick; they never stop the schedule.
type Task func(ctx context.Context) error

type entry struct {
	name     string
	interval time.Duration
	task     Task
}

// Scheduler owns the named periodic tasks that drive the boards. Each
// task gets an immediate first run and then its own ticker, so one slow
// or failing board never delays the others.
type Scheduler struct {
	mu      sync.Mutex
	entries []entry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers a task. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, interval: interval, task: task})
}

// Start launches every registered task.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.run(ctx, e)
	}
	log.Printf("[scheduler] started %d tasks", len(s.entries))
}

// Stop cancels all tasks and waits for the running ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	log.Printf("[scheduler] stopped")
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	defer s.wg.Done()

	tick := func() {
		if err := e.task(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[scheduler] task %s: %v", e.name, err)
		}
	}

	tick()
	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}
