package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farm2home/farm2home/pkg/queue"
)

type recordingCompensator struct {
	ids []string
	err error
}

func (r *recordingCompensator) Compensate(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return r.err
}

func TestCompensateAdjustmentDelegates(t *testing.T) {
	rc := &recordingCompensator{}
	Register(queue.NewManager(queue.NewMemoryDriver()), rc)

	job := &CompensateAdjustment{AdjustmentID: "abc"}
	require.NoError(t, job.Handle(context.Background()))
	assert.Equal(t, []string{"abc"}, rc.ids)
	assert.Equal(t, CompensateAdjustmentName, job.JobName())

	rc.err = errors.New("mongo down")
	assert.EqualError(t, job.Handle(context.Background()), "mongo down")
}
