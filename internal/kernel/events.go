package kernel

import (
	"sync"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/event"
	"github.com/farm2home/farm2home/pkg/logger"
	"github.com/farm2home/farm2home/pkg/metrics"
)

var listenOnce sync.Once

// RegisterListeners feeds domain events into metrics and the log. Safe to
// call more than once.
func RegisterListeners() {
	listenOnce.Do(func() {
		event.Listen(services.EventOrderPlaced, func(p any) {
			o, ok := p.(models.Order)
			if !ok {
				return
			}
			metrics.OrdersPlaced.Inc()
			metrics.UnitsSold.Add(float64(o.Quantity))
		})

		event.Listen(services.EventOrderDeleted, func(any) {
			metrics.OrdersDeleted.Inc()
		})

		event.Listen(services.EventOrderRejected, func(any) {
			metrics.InsufficientStock.Inc()
		})

		event.Listen(services.EventStockSettled, func(p any) {
			if e, ok := p.(services.StockEvent); ok {
				metrics.StockAdjustments.WithLabelValues(e.Adjustment.Reason, e.State).Inc()
			}
		})

		event.Listen(services.EventStockCompensated, func(p any) {
			if e, ok := p.(services.StockEvent); ok {
				logger.Warn("stock compensated",
					"adjustment_id", e.Adjustment.ID.Hex(),
					"product_id", e.Adjustment.ProductID.Hex(),
					"delta", e.Adjustment.Delta)
			}
		})

		event.Listen(services.EventStockCompensationFailed, func(p any) {
			if e, ok := p.(services.StockEvent); ok {
				metrics.StockAdjustments.WithLabelValues(e.Adjustment.Reason, "compensation_failed").Inc()
				logger.Error("stock compensation failed; queued for retry",
					"adjustment_id", e.Adjustment.ID.Hex(),
					"product_id", e.Adjustment.ProductID.Hex(),
					"error", e.Err)
			}
		})
	})
}
