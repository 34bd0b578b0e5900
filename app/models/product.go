package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a listing. Quantity is in kg and never negative.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Price       float64            `bson:"price"`
	Quantity    int                `bson:"quantity"`
	Image       string             `bson:"image,omitempty"`
	FarmerEmail string             `bson:"farmer_email"`
	FarmerName  string             `bson:"farmer_name"`
	CreatedAt   time.Time          `bson:"created_at"`

	// PendingAdjustments marks stock adjustments applied to this product
	// whose ledger entry has not settled yet.
	PendingAdjustments []primitive.ObjectID `bson:"pending_adjustments,omitempty"`
}

// ProductJSON is the wire form of a Product.
type ProductJSON struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Image       *string `json:"image"`
	FarmerEmail string  `json:"farmer_email"`
	FarmerName  string  `json:"farmer_name"`
	CreatedAt   string  `json:"created_at"`
}

func (p *Product) JSON() ProductJSON {
	out := ProductJSON{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		FarmerEmail: p.FarmerEmail,
		FarmerName:  p.FarmerName,
		CreatedAt:   ISOTime(p.CreatedAt),
	}
	if p.Image != "" {
		img := p.Image
		out.Image = &img
	}
	return out
}

// StockStatus labels a quantity for the farmer dashboard.
func StockStatus(quantity int) string {
	switch {
	case quantity <= 0:
		return "Out of Stock"
	case quantity <= 5:
		return "Low Stock"
	default:
		return "Good Stock"
	}
}
