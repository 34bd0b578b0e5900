// Package queue runs background jobs with retry, backed by an in-memory or
// Redis driver. Jobs that exhaust their retries are kept in memory and, when
// a FailedJobStore is configured, persisted for inspection.
//
//	m := queue.NewManager(queue.NewMemoryDriver())
//	m.Register(jobs.CompensateAdjustmentName, func() queue.Job { return &jobs.CompensateAdjustment{} })
//	m.StartWorkers(ctx, 2)
//	m.Dispatch(ctx, &jobs.CompensateAdjustment{AdjustmentID: id})
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/farm2home/farm2home/pkg/logger"
	"github.com/farm2home/farm2home/pkg/metrics"
)

// Job is the interface every queued job must satisfy.
type Job interface {
	// Handle executes the job. Return a non-nil error to signal failure.
	Handle(ctx context.Context) error
}

// Named lets a job choose its registry name; otherwise the Go type name is used.
type Named interface {
	JobName() string
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is available. A nil payload with a nil
	// error means "nothing yet, poll again".
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is implemented by drivers that can schedule a push.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// FailedJob is a job that exhausted its retries.
type FailedJob struct {
	JobType  string
	Payload  json.RawMessage
	Err      string
	Attempts int
	FailedAt time.Time
}

// FailedJobStore persists failed jobs.
type FailedJobStore interface {
	Save(ctx context.Context, job FailedJob) error
}

const maxFailedInMemory = 100

// Manager is the central queue hub.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	store    FailedJobStore
	maxRetry int
	backoff  time.Duration
}

// NewManager returns a manager with three attempts and a one second linear
// backoff.
func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
}

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

func (m *Manager) SetMaxRetry(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxRetry = n
}

func (m *Manager) SetBackoff(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoff = d
}

func (m *Manager) UseFailedJobStore(store FailedJobStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// ------------------- Dispatch -------------------

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func jobName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

func encode(job Job) ([]byte, error) {
	typeName := jobName(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", typeName, err)
	}
	env, err := json.Marshal(envelope{Type: typeName, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

func (m *Manager) currentDriver() Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	return m.currentDriver().Push(ctx, env)
}

// DispatchAfter uses the driver's native scheduling when available and a
// timer goroutine otherwise.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	env, err := encode(job)
	if err != nil {
		return err
	}

	d := m.currentDriver()
	if dd, ok := d.(DelayedDriver); ok {
		return dd.PushDelayed(ctx, env, delay)
	}

	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			if err := d.Push(context.Background(), env); err != nil {
				logger.Error("queue: delayed dispatch failed", "type", jobName(job), "error", err)
			}
		case <-ctx.Done():
		}
	}()
	return nil
}

// ------------------- Worker -------------------

func (m *Manager) StartWorkers(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go m.work(ctx)
	}
	logger.Info("queue: workers started", "count", n)
}

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := m.currentDriver().Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		m.persistFailed(ctx, env, fmt.Errorf("unregistered job type"), 0)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		m.persistFailed(ctx, env, err, 0)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	m.mu.RLock()
	maxRetry, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		start := time.Now()
		if err := job.Handle(ctx); err != nil {
			lastErr = err
			metrics.RecordQueueJob(env.Type, "retry", start)
			logger.Warn("queue: job failed, retrying",
				"type", env.Type, "attempt", attempt, "error", err)
			if attempt < maxRetry && !sleep(ctx, time.Duration(attempt)*backoff) {
				break
			}
			continue
		}
		metrics.RecordQueueJob(env.Type, "success", start)
		logger.Debug("queue: job processed", "type", env.Type)
		return
	}

	metrics.QueueJobsProcessed.WithLabelValues(env.Type, "failed").Inc()
	m.persistFailed(ctx, env, lastErr, maxRetry)
	logger.Error("queue: job exhausted retries", "type", env.Type, "error", lastErr)
}

func (m *Manager) persistFailed(ctx context.Context, env envelope, lastErr error, attempts int) {
	msg := "unknown error"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	fj := FailedJob{
		JobType:  env.Type,
		Payload:  env.Payload,
		Err:      msg,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.failed = append(m.failed, fj)
	if len(m.failed) > maxFailedInMemory {
		m.failed = m.failed[len(m.failed)-maxFailedInMemory:]
	}
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return
	}
	// The worker ctx may already be cancelled during shutdown; the record
	// still needs to land.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := store.Save(saveCtx, fj); err != nil {
		logger.Error("queue: persist failed job", "type", env.Type, "error", err)
	}
}

func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}

// sleep waits d or until ctx ends; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
