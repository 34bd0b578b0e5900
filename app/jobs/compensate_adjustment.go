// Package jobs holds the queue jobs the application dispatches.
package jobs

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/farm2home/farm2home/pkg/queue"
)

// CompensateAdjustmentName is the queue registry name.
const CompensateAdjustmentName = "stock.compensate_adjustment"

// Compensator reverts a pending stock adjustment; the stock ledger
// implements it.
type Compensator interface {
	Compensate(ctx context.Context, adjustmentID string) error
}

var compensator atomic.Pointer[Compensator]

// ErrNoCompensator is returned when a job runs before Register.
var ErrNoCompensator = errors.New("jobs: no compensator registered")

// Register binds the ledger and registers the job type with m.
func Register(m *queue.Manager, c Compensator) {
	compensator.Store(&c)
	m.Register(CompensateAdjustmentName, func() queue.Job { return &CompensateAdjustment{} })
}

// CompensateAdjustment retries reverting a stock delta whose inline revert
// failed. Exhausted retries land in failed_jobs.
type CompensateAdjustment struct {
	AdjustmentID string `json:"adjustment_id"`
}

func (j *CompensateAdjustment) JobName() string { return CompensateAdjustmentName }

func (j *CompensateAdjustment) Handle(ctx context.Context) error {
	c := compensator.Load()
	if c == nil {
		return ErrNoCompensator
	}
	return (*c).Compensate(ctx, j.AdjustmentID)
}
