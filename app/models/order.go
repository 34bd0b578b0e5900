package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

var orderStatuses = map[string]bool{
	OrderPending:   true,
	OrderConfirmed: true,
	OrderShipped:   true,
	OrderDelivered: true,
	OrderCancelled: true,
}

// ValidOrderStatus reports whether status is one of the five order states.
// Any state may move to any other.
func ValidOrderStatus(status string) bool { return orderStatuses[status] }

// Order snapshots the product and parties at purchase time. ProductID is
// stored as the hex string the client sent.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ProductID   string             `bson:"product_id"`
	ProductName string             `bson:"product_name"`
	BuyerEmail  string             `bson:"buyer_email"`
	BuyerName   string             `bson:"buyer_name"`
	FarmerEmail string             `bson:"farmer_email"`
	FarmerName  string             `bson:"farmer_name"`
	Quantity    int                `bson:"quantity"`
	TotalPrice  float64            `bson:"total_price"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// OrderJSON is the wire form of an Order.
type OrderJSON struct {
	ID          string  `json:"_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	BuyerEmail  string  `json:"buyer_email"`
	BuyerName   string  `json:"buyer_name"`
	FarmerEmail string  `json:"farmer_email"`
	FarmerName  string  `json:"farmer_name"`
	Quantity    int     `json:"quantity"`
	TotalPrice  float64 `json:"total_price"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

func (o *Order) JSON() OrderJSON {
	status := o.Status
	if status == "" {
		status = OrderConfirmed
	}
	return OrderJSON{
		ID:          o.ID.Hex(),
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		BuyerEmail:  o.BuyerEmail,
		BuyerName:   o.BuyerName,
		FarmerEmail: o.FarmerEmail,
		FarmerName:  o.FarmerName,
		Quantity:    o.Quantity,
		TotalPrice:  o.TotalPrice,
		Status:      status,
		CreatedAt:   ISOTime(o.CreatedAt),
	}
}
