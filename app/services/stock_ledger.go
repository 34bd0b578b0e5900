package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/jobs"
	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/pkg/database"
	"github.com/farm2home/farm2home/pkg/event"
	"github.com/farm2home/farm2home/pkg/logger"
	"github.com/farm2home/farm2home/pkg/workerpool"
)

const (
	compensationDelay   = 2 * time.Second
	compensationTimeout = 10 * time.Second
	recoveryWorkers     = 8
)

var (
	errStockExhausted = errors.New("stock exhausted")
	errOrderGone      = errors.New("order already deleted")
)

// StockLedger couples every stock change to the order write that causes it.
//
// With transactions available both writes share one Mongo transaction.
// Otherwise each change is journaled in stock_adjustments: the delta is
// applied together with a marker on the product, the order is written, and
// the entry is settled. A failed order write reverts the delta through the
// marker, so a revert can never run twice; if the revert itself fails a
// CompensateAdjustment job retries it and Recover settles anything a crash
// left pending.
type StockLedger struct {
	products ProductStore
	orders   OrderStore
	journal  AdjustmentStore
	tx       database.TxRunner
	jobs     Dispatcher
	now      func() time.Time
}

func NewStockLedger(products ProductStore, orders OrderStore, journal AdjustmentStore, tx database.TxRunner, jobs Dispatcher) *StockLedger {
	return &StockLedger{
		products: products,
		orders:   orders,
		journal:  journal,
		tx:       tx,
		jobs:     jobs,
		now:      time.Now,
	}
}

func (l *StockLedger) transactional() bool {
	return l.tx != nil && l.tx.Transactional()
}

// PlaceOrder takes order.Quantity from the product and inserts the order.
// order.ID must already be set.
func (l *StockLedger) PlaceOrder(ctx context.Context, productID primitive.ObjectID, order *models.Order) error {
	if l.transactional() {
		return l.placeInTx(ctx, productID, order)
	}

	adj, err := l.open(ctx, productID, order.ID, -order.Quantity, models.ReasonOrderCreate)
	if err != nil {
		return storeError("Failed to create order", err)
	}

	applied, err := l.products.ApplyMarked(ctx, productID, adj.ID, adj.Delta)
	if err != nil {
		l.compensate(ctx, adj, err)
		return storeError("Failed to create order", err)
	}
	if !applied {
		l.settle(ctx, adj, models.AdjustmentAborted, errStockExhausted)
		return l.exhausted(ctx, productID)
	}

	if err := l.orders.Insert(ctx, order); err != nil {
		l.compensate(ctx, adj, err)
		return storeError("Failed to create order", err)
	}

	l.commit(ctx, adj)
	return nil
}

// RemoveOrder gives order.Quantity back to the product and deletes the
// order. A product that no longer exists is skipped. Returns a not-found
// error when a concurrent call already deleted the order; that call's
// restore is the one that stands.
func (l *StockLedger) RemoveOrder(ctx context.Context, order *models.Order) error {
	productID, pidErr := primitive.ObjectIDFromHex(order.ProductID)

	if l.transactional() {
		return l.removeInTx(ctx, productID, pidErr == nil, order)
	}

	if pidErr != nil {
		return l.deleteOnly(ctx, order)
	}

	adj, err := l.open(ctx, productID, order.ID, order.Quantity, models.ReasonOrderDelete)
	if err != nil {
		return storeError("Failed to delete order", err)
	}

	applied, err := l.products.ApplyMarked(ctx, productID, adj.ID, adj.Delta)
	if err != nil {
		l.compensate(ctx, adj, err)
		return storeError("Failed to delete order", err)
	}
	if !applied {
		// Product is gone; deleting the order is all that is left.
		l.settle(ctx, adj, models.AdjustmentAborted, errors.New("product not found"))
		return l.deleteOnly(ctx, order)
	}

	deleted, err := l.orders.Delete(ctx, order.ID)
	if err != nil {
		l.compensate(ctx, adj, err)
		return storeError("Failed to delete order", err)
	}
	if !deleted {
		l.compensate(ctx, adj, errOrderGone)
		return notFoundError("Order not found")
	}

	l.commit(ctx, adj)
	return nil
}

func (l *StockLedger) deleteOnly(ctx context.Context, order *models.Order) error {
	deleted, err := l.orders.Delete(ctx, order.ID)
	if err != nil {
		return storeError("Failed to delete order", err)
	}
	if !deleted {
		return notFoundError("Order not found")
	}
	return nil
}

// ─── Transactional mode ───────────────────────────────────────────────────────

func (l *StockLedger) placeInTx(ctx context.Context, productID primitive.ObjectID, order *models.Order) error {
	err := l.tx.WithinTx(ctx, func(tctx context.Context) error {
		ok, err := l.products.Adjust(tctx, productID, -order.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return errStockExhausted
		}
		if err := l.orders.Insert(tctx, order); err != nil {
			return err
		}
		return l.journal.Insert(tctx, l.entry(productID, order.ID, -order.Quantity, models.ReasonOrderCreate, models.AdjustmentApplied))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errStockExhausted):
		return l.exhausted(ctx, productID)
	default:
		return storeError("Failed to create order", err)
	}
}

func (l *StockLedger) removeInTx(ctx context.Context, productID primitive.ObjectID, restorable bool, order *models.Order) error {
	err := l.tx.WithinTx(ctx, func(tctx context.Context) error {
		deleted, err := l.orders.Delete(tctx, order.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return errOrderGone
		}
		if !restorable {
			return nil
		}
		ok, err := l.products.Adjust(tctx, productID, order.Quantity)
		if err != nil || !ok {
			return err
		}
		return l.journal.Insert(tctx, l.entry(productID, order.ID, order.Quantity, models.ReasonOrderDelete, models.AdjustmentApplied))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errOrderGone):
		return notFoundError("Order not found")
	default:
		return storeError("Failed to delete order", err)
	}
}

// ─── Journal steps ────────────────────────────────────────────────────────────

func (l *StockLedger) entry(productID, orderID primitive.ObjectID, delta int, reason, state string) *models.StockAdjustment {
	now := l.now().UTC().Truncate(time.Millisecond)
	return &models.StockAdjustment{
		ID:        primitive.NewObjectID(),
		ProductID: productID,
		OrderID:   orderID,
		Delta:     delta,
		Reason:    reason,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (l *StockLedger) open(ctx context.Context, productID, orderID primitive.ObjectID, delta int, reason string) (*models.StockAdjustment, error) {
	adj := l.entry(productID, orderID, delta, reason, models.AdjustmentPending)
	if err := l.journal.Insert(ctx, adj); err != nil {
		return nil, err
	}
	return adj, nil
}

// commit keeps an applied delta. The marker goes first: an entry left
// pending without a marker still resolves to applied once the order write
// is observed.
func (l *StockLedger) commit(ctx context.Context, adj *models.StockAdjustment) {
	ctx, cancel := detach(ctx)
	defer cancel()

	if err := l.products.ClearMarker(ctx, adj.ProductID, adj.ID); err != nil {
		logger.WithCtx(ctx).Warn("ledger: clear marker failed; recovery will settle",
			"adjustment_id", adj.ID.Hex(), "error", err)
		return
	}
	l.settle(ctx, adj, models.AdjustmentApplied, nil)
}

// compensate reverts adj after its order write failed with cause.
func (l *StockLedger) compensate(ctx context.Context, adj *models.StockAdjustment, cause error) {
	ctx, cancel := detach(ctx)
	defer cancel()
	log := logger.WithCtx(ctx)

	if _, err := l.products.RevertMarked(ctx, adj.ProductID, adj.ID, adj.Delta); err != nil {
		log.Error("ledger: revert failed; queueing compensation",
			"adjustment_id", adj.ID.Hex(), "cause", cause, "error", err)
		if rerr := l.journal.RecordAttempt(ctx, adj.ID, err.Error()); rerr != nil {
			log.Warn("ledger: record attempt failed", "adjustment_id", adj.ID.Hex(), "error", rerr)
		}
		event.Fire(EventStockCompensationFailed, StockEvent{Adjustment: *adj, State: models.AdjustmentPending, Err: err})
		l.queueCompensation(ctx, adj)
		return
	}

	log.Warn("ledger: order write failed; stock restored",
		"adjustment_id", adj.ID.Hex(), "reason", adj.Reason, "cause", cause)
	if l.settle(ctx, adj, models.AdjustmentCompensated, cause) {
		event.Fire(EventStockCompensated, StockEvent{Adjustment: *adj, State: models.AdjustmentCompensated, Err: cause})
	}
}

func (l *StockLedger) queueCompensation(ctx context.Context, adj *models.StockAdjustment) {
	if l.jobs == nil {
		return
	}
	job := &jobs.CompensateAdjustment{AdjustmentID: adj.ID.Hex()}
	if err := l.jobs.DispatchAfter(ctx, job, compensationDelay); err != nil {
		logger.WithCtx(ctx).Error("ledger: dispatch compensation failed; recovery will settle",
			"adjustment_id", adj.ID.Hex(), "error", err)
	}
}

// settle moves adj out of pending and reports whether this call did it.
func (l *StockLedger) settle(ctx context.Context, adj *models.StockAdjustment, state string, cause error) bool {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	ok, err := l.journal.Settle(ctx, adj.ID, state, msg)
	if err != nil {
		logger.WithCtx(ctx).Warn("ledger: settle failed; recovery will retry",
			"adjustment_id", adj.ID.Hex(), "state", state, "error", err)
		return false
	}
	if ok {
		adj.State = state
		event.Fire(EventStockSettled, StockEvent{Adjustment: *adj, State: state, Err: cause})
	}
	return ok
}

// exhausted turns a refused decrement into the client-facing error,
// re-reading the product for the amount actually left.
func (l *StockLedger) exhausted(ctx context.Context, productID primitive.ObjectID) error {
	product, err := l.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError("Product not found")
		}
		return storeError("Failed to create order", err)
	}
	return insufficientStockError(product.Quantity)
}

// ─── Compensation job ─────────────────────────────────────────────────────────

// Compensate reverts a still-pending adjustment. Settled or unknown entries
// are a no-op so a retried job is harmless.
func (l *StockLedger) Compensate(ctx context.Context, adjustmentID string) error {
	id, err := primitive.ObjectIDFromHex(adjustmentID)
	if err != nil {
		return fmt.Errorf("ledger: bad adjustment id %q: %w", adjustmentID, err)
	}

	adj, err := l.journal.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err
	}
	if adj.State != models.AdjustmentPending {
		return nil
	}

	if _, err := l.products.RevertMarked(ctx, adj.ProductID, adj.ID, adj.Delta); err != nil {
		if rerr := l.journal.RecordAttempt(ctx, adj.ID, err.Error()); rerr != nil {
			logger.Warn("ledger: record attempt failed", "adjustment_id", adjustmentID, "error", rerr)
		}
		return err
	}
	if l.settle(ctx, adj, models.AdjustmentCompensated, errors.New("compensated by queue")) {
		event.Fire(EventStockCompensated, StockEvent{Adjustment: *adj, State: models.AdjustmentCompensated})
	}
	return nil
}

// ─── Recovery ─────────────────────────────────────────────────────────────────

// RecoveryReport counts how Recover settled each pending entry.
type RecoveryReport struct {
	Scanned     int `json:"scanned"`
	Applied     int `json:"applied"`
	Compensated int `json:"compensated"`
	Aborted     int `json:"aborted"`
	Failed      int `json:"failed"`
}

// Recover settles entries left pending for longer than grace by looking at
// what actually happened: if the order write is visible the delta stands,
// otherwise a delta still marked on the product is reverted, and an entry
// whose delta never landed is aborted.
func (l *StockLedger) Recover(ctx context.Context, grace time.Duration) (RecoveryReport, error) {
	var report RecoveryReport

	pending, err := l.journal.ListPending(ctx, l.now().UTC().Add(-grace))
	if err != nil {
		return report, fmt.Errorf("ledger: list pending: %w", err)
	}
	report.Scanned = len(pending)
	if len(pending) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	pool := workerpool.New(recoveryWorkers)
	for i := range pending {
		adj := &pending[i]
		err := pool.SubmitCtx(ctx, func() {
			state, err := l.resolve(ctx, adj)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				logger.Warn("ledger: recovery failed", "adjustment_id", adj.ID.Hex(), "error", err)
				return
			}
			switch state {
			case models.AdjustmentApplied:
				report.Applied++
			case models.AdjustmentCompensated:
				report.Compensated++
			case models.AdjustmentAborted:
				report.Aborted++
			}
		})
		if err != nil {
			mu.Lock()
			report.Failed += len(pending) - i
			mu.Unlock()
			break
		}
	}
	pool.Shutdown()

	logger.Info("ledger: recovery finished",
		"scanned", report.Scanned,
		"applied", report.Applied,
		"compensated", report.Compensated,
		"aborted", report.Aborted,
		"failed", report.Failed,
	)
	return report, ctx.Err()
}

func (l *StockLedger) resolve(ctx context.Context, adj *models.StockAdjustment) (string, error) {
	happened, err := l.orderWriteHappened(ctx, adj)
	if err != nil {
		return "", err
	}
	if happened {
		if err := l.products.ClearMarker(ctx, adj.ProductID, adj.ID); err != nil {
			return "", err
		}
		l.settle(ctx, adj, models.AdjustmentApplied, nil)
		return models.AdjustmentApplied, nil
	}

	marked, err := l.products.HasMarker(ctx, adj.ProductID, adj.ID)
	if err != nil {
		return "", err
	}
	if marked {
		if _, err := l.products.RevertMarked(ctx, adj.ProductID, adj.ID, adj.Delta); err != nil {
			return "", err
		}
		if l.settle(ctx, adj, models.AdjustmentCompensated, errors.New("recovered")) {
			event.Fire(EventStockCompensated, StockEvent{Adjustment: *adj, State: models.AdjustmentCompensated})
		}
		return models.AdjustmentCompensated, nil
	}

	l.settle(ctx, adj, models.AdjustmentAborted, errors.New("recovered"))
	return models.AdjustmentAborted, nil
}

// orderWriteHappened checks whether the order insert (or delete) that adj
// was paired with took effect. A delete only counts if no other entry
// already restored stock for the same order.
func (l *StockLedger) orderWriteHappened(ctx context.Context, adj *models.StockAdjustment) (bool, error) {
	exists, err := l.orders.Exists(ctx, adj.OrderID)
	if err != nil {
		return false, err
	}
	if adj.Reason == models.ReasonOrderCreate {
		return exists, nil
	}
	if exists {
		return false, nil
	}
	other, err := l.journal.AppliedFor(ctx, adj.OrderID, models.ReasonOrderDelete, adj.ID)
	if err != nil {
		return false, err
	}
	return !other, nil
}

// detach keeps ledger bookkeeping running after the request context ends.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}
