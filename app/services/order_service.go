package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/pkg/event"
)

// OrderInput is the place-order request body.
type OrderInput struct {
	ProductID  string `json:"product_id"`
	BuyerEmail string `json:"buyer_email"`
	BuyerName  string `json:"buyer_name"`
	Quantity   any    `json:"quantity"`
}

type OrderService struct {
	products ProductStore
	orders   OrderStore
	ledger   *StockLedger
	now      func() time.Time
}

func NewOrderService(products ProductStore, orders OrderStore, ledger *StockLedger) *OrderService {
	return &OrderService{products: products, orders: orders, ledger: ledger, now: time.Now}
}

// Place checks the request against the product, then lets the ledger take
// the stock and write the order together.
func (s *OrderService) Place(ctx context.Context, in OrderInput) (*models.Order, error) {
	if in.ProductID == "" || in.BuyerEmail == "" || absent(in.Quantity) {
		return nil, validationError("Product ID, buyer email, and quantity are required")
	}
	quantity, err := toInt(in.Quantity)
	if err != nil || quantity <= 0 {
		return nil, validationError("Quantity must be a positive whole number")
	}
	if quantity > maxQuantity {
		return nil, validationError("Quantity is too large")
	}

	productID, err := primitive.ObjectIDFromHex(in.ProductID)
	if err != nil {
		return nil, validationError("Invalid product ID format")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError("Product not found")
		}
		return nil, storeError("Failed to create order", err)
	}
	if product.Quantity < quantity {
		event.Fire(EventOrderRejected, in.ProductID)
		return nil, insufficientStockError(product.Quantity)
	}

	if math.IsNaN(product.Price) || math.IsInf(product.Price, 0) {
		return nil, validationError("Order total is too large")
	}
	total := decimal.NewFromFloat(product.Price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2)
	if total.GreaterThan(maxOrderTotal) {
		return nil, validationError("Order total is too large")
	}

	order := &models.Order{
		ID:          primitive.NewObjectID(),
		ProductID:   in.ProductID,
		ProductName: product.Name,
		BuyerEmail:  in.BuyerEmail,
		BuyerName:   in.BuyerName,
		FarmerEmail: product.FarmerEmail,
		FarmerName:  product.FarmerName,
		Quantity:    quantity,
		TotalPrice:  total.InexactFloat64(),
		Status:      models.OrderConfirmed,
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.ledger.PlaceOrder(ctx, productID, order); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			event.Fire(EventOrderRejected, in.ProductID)
		}
		return nil, err
	}

	event.Fire(EventOrderPlaced, *order)
	return order, nil
}

// List returns all orders newest first.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, repositories.OrderFilter{}, "Failed to fetch orders")
}

func (s *OrderService) ListByBuyer(ctx context.Context, email string) ([]models.Order, error) {
	return s.list(ctx, repositories.OrderFilter{BuyerEmail: email}, "Failed to fetch buyer orders")
}

func (s *OrderService) ListByFarmer(ctx context.Context, email string) ([]models.Order, error) {
	return s.list(ctx, repositories.OrderFilter{FarmerEmail: email}, "Failed to fetch farmer orders")
}

func (s *OrderService) list(ctx context.Context, f repositories.OrderFilter, msg string) ([]models.Order, error) {
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, storeError(msg, err)
	}
	return orders, nil
}

// Get fetches one order; a malformed id is simply not found.
func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFoundError("Order not found")
	}
	order, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError("Order not found")
		}
		return nil, storeError("Failed to fetch order", err)
	}
	return order, nil
}

// UpdateStatus sets any of the five statuses from any other.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) error {
	if !models.ValidOrderStatus(status) {
		return validationError("Invalid status")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFoundError("Order not found")
	}
	if err := s.orders.UpdateStatus(ctx, oid, status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError("Order not found")
		}
		return storeError("Failed to update order", err)
	}
	return nil
}

// Delete restores the order's stock and removes it.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		var se *Error
		if errors.As(err, &se) && se.Kind == KindStore {
			se.Message = "Failed to delete order"
		}
		return err
	}

	if err := s.ledger.RemoveOrder(ctx, order); err != nil {
		return err
	}

	event.Fire(EventOrderDeleted, *order)
	return nil
}
