package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastScheduler() *Scheduler {
	s := New()
	s.tick = 5 * time.Millisecond
	return s
}

func TestTasksRunEveryInterval(t *testing.T) {
	s := fastScheduler()
	var runs, failures atomic.Int32
	s.Interval(10 * time.Millisecond).Name("count").Run(func(context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Interval(10 * time.Millisecond).Run(func(context.Context) error {
		failures.Add(1)
		return errors.New("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return failures.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"a failing task keeps its schedule")

	cancel()
	s.Wait()
}

func TestFirstRunWaitsOneInterval(t *testing.T) {
	s := fastScheduler()
	var runs atomic.Int32
	s.Every(1).Hours().Run(func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Wait()

	assert.Zero(t, runs.Load())
}

func TestWithoutOverlappingSkipsBusyTask(t *testing.T) {
	s := fastScheduler()
	release := make(chan struct{})
	var starts atomic.Int32
	s.Interval(time.Millisecond).WithoutOverlapping().Run(func(ctx context.Context) error {
		starts.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool { return starts.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), starts.Load())

	close(release)
	assert.Eventually(t, func() bool { return starts.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	s := fastScheduler()
	var runs atomic.Int32
	s.Interval(10 * time.Millisecond).Run(func(context.Context) error {
		runs.Add(1)
		panic("kaboom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}

func TestList(t *testing.T) {
	s := New()
	s.Every(5).Minutes().Name("stock:recover").Run(func(context.Context) error { return nil })
	s.Every(30).Seconds().Run(func(context.Context) error { return nil })

	assert.Equal(t, []string{
		"stock:recover  [every 5m0s]",
		"task-2  [every 30s]",
	}, s.List())
}
