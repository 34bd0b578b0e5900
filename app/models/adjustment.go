package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger entry states. Pending is the only non-terminal state.
const (
	AdjustmentPending     = "pending"
	AdjustmentApplied     = "applied"
	AdjustmentCompensated = "compensated"
	AdjustmentAborted     = "aborted"
)

// Reasons a product's stock moves.
const (
	ReasonOrderCreate = "order_create"
	ReasonOrderDelete = "order_delete"
)

// StockAdjustment journals one stock change tied to an order write.
// Delta is signed: negative takes stock, positive gives it back.
type StockAdjustment struct {
	ID        primitive.ObjectID `bson:"_id"`
	ProductID primitive.ObjectID `bson:"product_id"`
	OrderID   primitive.ObjectID `bson:"order_id"`
	Delta     int                `bson:"delta"`
	Reason    string             `bson:"reason"`
	State     string             `bson:"state"`
	Attempts  int                `bson:"attempts"`
	Error     string             `bson:"error,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}
