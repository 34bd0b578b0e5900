// Package schedule runs named background tasks on a fixed interval.
//
// Usage:
//
//	s := schedule.New()
//	s.Every(5).Minutes().Name("stock:recover").WithoutOverlapping().Run(sweep)
//	s.Start(ctx)
//	defer s.Wait()
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/farm2home/farm2home/pkg/logger"
)

// Task is one run of a scheduled job. The context ends when the scheduler
// stops.
type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler dispatches due tasks once per tick.
type Scheduler struct {
	tick time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{tick: time.Second, now: time.Now}
}

// Schedule is a fluent builder for a single entry before it is registered.
type Schedule struct {
	s *Scheduler
	e *entry
}

type freqBuilder struct {
	s *Scheduler
	n int
}

// Every starts a builder with n units.
func (s *Scheduler) Every(n int) *freqBuilder { return &freqBuilder{s: s, n: n} }

// Interval starts a builder with an exact period.
func (s *Scheduler) Interval(d time.Duration) *Schedule {
	return &Schedule{s: s, e: &entry{interval: d}}
}

func (f *freqBuilder) Seconds() *Schedule { return f.s.Interval(time.Duration(f.n) * time.Second) }
func (f *freqBuilder) Minutes() *Schedule { return f.s.Interval(time.Duration(f.n) * time.Minute) }
func (f *freqBuilder) Hours() *Schedule   { return f.s.Interval(time.Duration(f.n) * time.Hour) }

// WithoutOverlapping skips a run while the previous one is still executing.
func (b *Schedule) WithoutOverlapping() *Schedule {
	b.e.noOverlap = true
	return b
}

// Name gives the entry an identifier for logs and List.
func (b *Schedule) Name(id string) *Schedule {
	b.e.id = id
	return b
}

// Run registers the task. Its first run comes one interval after
// registration.
func (b *Schedule) Run(fn Task) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()

	b.e.task = fn
	b.e.lastRun = s.now()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(s.entries)+1)
	}
	s.entries = append(s.entries, b.e)
}

// Start begins dispatching in the background until ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
	logger.Info("schedule: started", "tasks", len(s.List()))
}

// Wait blocks until the loop and every in-flight task have returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule: stopped")
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			current := make([]*entry, len(s.entries))
			copy(current, s.entries)
			s.mu.Unlock()

			for _, e := range current {
				s.dispatch(ctx, e, now)
			}
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if now.Sub(e.lastRun) < e.interval {
		e.mu.Unlock()
		return
	}
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "id", e.id, "error", err)
			return
		}
		logger.Debug("schedule: task done", "id", e.id, "took", time.Since(start))
	}()
}

// List describes every registered entry, for the CLI.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [every %s]", e.id, e.interval))
	}
	return out
}
