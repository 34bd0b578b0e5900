package services

import "github.com/farm2home/farm2home/app/models"

// Domain events, fired synchronously through pkg/event.
const (
	EventOrderPlaced             = "order.placed"
	EventOrderDeleted            = "order.deleted"
	EventOrderRejected           = "order.insufficient_stock"
	EventStockSettled            = "stock.settled"
	EventStockCompensated        = "stock.compensated"
	EventStockCompensationFailed = "stock.compensation_failed"

	// EventProductChanged carries the models.Product that was added,
	// updated or deleted.
	EventProductChanged = "product.changed"
)

// StockEvent is the payload of the stock.* events.
type StockEvent struct {
	Adjustment models.StockAdjustment
	State      string
	Err        error
}
