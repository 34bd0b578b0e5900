package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farm2home/farm2home/pkg/queue"
)

// Decoded jobs are fresh values, so they report through package-level sinks.
var (
	seenMu sync.Mutex
	seen   = map[string]int{}
	done   = make(chan string, 64)
)

func record(key string) {
	seenMu.Lock()
	seen[key]++
	seenMu.Unlock()
	done <- key
}

func attempts(key string) int {
	seenMu.Lock()
	defer seenMu.Unlock()
	return seen[key]
}

type echoJob struct {
	Val string `json:"val"`
}

func (j *echoJob) JobName() string { return "echo" }

func (j *echoJob) Handle(context.Context) error {
	record(j.Val)
	return nil
}

type flakyJob struct {
	Key      string `json:"key"`
	FailTill int    `json:"fail_till"`
}

func (j *flakyJob) JobName() string { return "flaky" }

func (j *flakyJob) Handle(context.Context) error {
	record(j.Key)
	if attempts(j.Key) <= j.FailTill {
		return errors.New("not yet")
	}
	return nil
}

type savingStore struct {
	mu   sync.Mutex
	jobs []queue.FailedJob
	ch   chan struct{}
}

func (s *savingStore) Save(_ context.Context, job queue.FailedJob) error {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	s.ch <- struct{}{}
	return nil
}

func newManager(t *testing.T) (*queue.Manager, context.Context) {
	t.Helper()
	m := queue.NewManager(queue.NewMemoryDriver())
	m.SetBackoff(0)
	m.Register("echo", func() queue.Job { return &echoJob{} })
	m.Register("flaky", func() queue.Job { return &flakyJob{} })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return m, ctx
}

func waitFor(t *testing.T, key string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-done:
			if got == key {
				return
			}
		case <-deadline:
			t.Fatalf("job %q never ran", key)
		}
	}
}

func TestDispatchAndProcess(t *testing.T) {
	m, ctx := newManager(t)
	m.StartWorkers(ctx, 2)

	require.NoError(t, m.Dispatch(ctx, &echoJob{Val: "hello"}))
	waitFor(t, "hello")
	assert.Equal(t, 1, attempts("hello"))
}

func TestRetryThenSucceed(t *testing.T) {
	m, ctx := newManager(t)
	m.SetMaxRetry(3)
	m.StartWorkers(ctx, 1)

	require.NoError(t, m.Dispatch(ctx, &flakyJob{Key: "flaky-ok", FailTill: 2}))
	waitFor(t, "flaky-ok")
	waitFor(t, "flaky-ok")
	waitFor(t, "flaky-ok")

	assert.Equal(t, 3, attempts("flaky-ok"))
	assert.Empty(t, m.FailedJobs())
}

func TestExhaustedJobIsPersisted(t *testing.T) {
	m, ctx := newManager(t)
	m.SetMaxRetry(2)
	store := &savingStore{ch: make(chan struct{}, 1)}
	m.UseFailedJobStore(store)
	m.StartWorkers(ctx, 1)

	require.NoError(t, m.Dispatch(ctx, &flakyJob{Key: "flaky-fail", FailTill: 100}))

	select {
	case <-store.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("failed job was not persisted")
	}

	failed := m.FailedJobs()
	require.Len(t, failed, 1)
	assert.Equal(t, "flaky", failed[0].JobType)
	assert.Equal(t, 2, failed[0].Attempts)
	assert.Equal(t, "not yet", failed[0].Err)
	assert.JSONEq(t, `{"key":"flaky-fail","fail_till":100}`, string(failed[0].Payload))
	assert.Equal(t, 2, attempts("flaky-fail"))
}

func TestUnregisteredJobFails(t *testing.T) {
	m := queue.NewManager(queue.NewMemoryDriver())
	store := &savingStore{ch: make(chan struct{}, 1)}
	m.UseFailedJobStore(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartWorkers(ctx, 1)

	require.NoError(t, m.Dispatch(ctx, &echoJob{Val: "orphan"}))

	select {
	case <-store.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("unregistered job was not failed")
	}
	assert.Equal(t, "echo", m.FailedJobs()[0].JobType)
}

func TestDispatchAfterFallsBackToTimer(t *testing.T) {
	m, ctx := newManager(t)
	m.StartWorkers(ctx, 1)

	start := time.Now()
	require.NoError(t, m.DispatchAfter(ctx, &echoJob{Val: "later"}, 50*time.Millisecond))
	waitFor(t, "later")
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryDriverFullBuffer(t *testing.T) {
	d := queue.NewMemoryDriver()
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		require.NoError(t, d.Push(ctx, []byte("x")))
	}
	assert.ErrorIs(t, d.Push(ctx, []byte("x")), queue.ErrQueueFull)
	assert.Equal(t, 1000, d.Len())
}

type fakeInserter struct {
	doc interface{}
}

func (f *fakeInserter) InsertOne(_ context.Context, doc interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	f.doc = doc
	return &mongo.InsertOneResult{}, nil
}

func TestMongoFailedJobStoreSave(t *testing.T) {
	col := &fakeInserter{}
	store := queue.NewMongoFailedJobStore(col)

	err := store.Save(context.Background(), queue.FailedJob{
		JobType:  "flaky",
		Payload:  []byte(`{"key":"k"}`),
		Err:      "boom",
		Attempts: 3,
		FailedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, col.doc)
}
