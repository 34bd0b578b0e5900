package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farm2home/farm2home/pkg/workerpool"
)

func TestPoolRunsEverySubmittedTask(t *testing.T) {
	pool := workerpool.New(4)

	const n = 100
	var count atomic.Int64
	for i := 0; i < n; i++ {
		require.NoError(t, pool.SubmitWait(func() { count.Add(1) }))
	}

	pool.Shutdown()
	assert.EqualValues(t, n, count.Load())
}

func TestPoolFull(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.SubmitWait(func() {
		close(started)
		<-blocker
	}))
	<-started

	// Buffer is 2× workers.
	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolFull)
	close(blocker)
}

func TestSubmitCtxHonoursCancellation(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	defer close(blocker)
	started := make(chan struct{})
	require.NoError(t, pool.SubmitWait(func() {
		close(started)
		<-blocker
	}))
	<-started
	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := pool.SubmitCtx(ctx, func() {})
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestPoolClosed(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolClosed)
	assert.ErrorIs(t, pool.SubmitWait(func() {}), workerpool.ErrPoolClosed)
}

func TestPoolRecoversFromPanic(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, pool.SubmitWait(func() {
		defer wg.Done()
		panic("intentional")
	}))
	wg.Wait()

	done := make(chan struct{})
	require.NoError(t, pool.SubmitWait(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not recover from panic")
	}
}
