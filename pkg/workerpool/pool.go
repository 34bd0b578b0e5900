// Package workerpool provides a bounded goroutine pool.
//
// The stock ledger's recovery sweep uses it to resolve pending adjustments
// concurrently without opening one Mongo round-trip per entry at once:
//
//	pool := workerpool.New(8)
//	for _, entry := range pending {
//	    entry := entry
//	    if err := pool.SubmitCtx(ctx, func() { resolve(ctx, entry) }); err != nil {
//	        break
//	    }
//	}
//	pool.Shutdown() // waits for in-flight work
package workerpool

import (
	"context"
	"errors"
	"sync"

	"github.com/farm2home/farm2home/pkg/logger"
)

// ErrPoolFull is returned by Submit when all workers are busy and the task
// queue is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	closeCh chan struct{}
}

// New creates a Pool with size workers (minimum 1) and a task buffer of
// twice that.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		tasks:   make(chan func(), size*2),
		closeCh: make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit enqueues task without blocking.
//   - Returns ErrPoolFull if the task queue is at capacity.
//   - Returns ErrPoolClosed if Shutdown has been called.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until a slot is free or the pool is closed.
func (p *Pool) SubmitWait(task func()) error {
	return p.SubmitCtx(context.Background(), task)
}

// SubmitCtx blocks until a slot is free, the pool is closed, or ctx ends.
func (p *Pool) SubmitCtx(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closeCh:
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// Shutdown stops accepting new tasks and waits for queued and in-flight
// tasks to finish. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.closeCh)
		// Wait for blocked submitters to observe closeCh before closing tasks.
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

// safeRun executes task, recovering panics so one bad task cannot kill a
// worker.
func safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "panic", r)
		}
	}()
	task()
}
