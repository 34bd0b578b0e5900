package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/pkg/database"
	"github.com/farm2home/farm2home/pkg/metrics"
)

// OrderFilter narrows List; empty fields match everything.
type OrderFilter struct {
	BuyerEmail  string
	FarmerEmail string
}

// OrderRepository handles the orders collection.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(database.Orders)}
}

// Insert stores o. The ID is normally pre-generated by the ledger so the
// journal can reference the order before it exists.
func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) (err error) {
	defer metrics.ObserveStoreOp(database.Orders, "insert", time.Now(), &err)

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if _, err = r.col.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (o *models.Order, err error) {
	defer metrics.ObserveStoreOp(database.Orders, "find_one", time.Now(), &err)

	var order models.Order
	if err = r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *OrderRepository) Exists(ctx context.Context, id primitive.ObjectID) (ok bool, err error) {
	defer metrics.ObserveStoreOp(database.Orders, "count", time.Now(), &err)

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("count order: %w", err)
	}
	return n > 0, nil
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) (out []models.Order, err error) {
	defer metrics.ObserveStoreOp(database.Orders, "find", time.Now(), &err)

	filter := bson.M{}
	if f.BuyerEmail != "" {
		filter["buyer_email"] = f.BuyerEmail
	}
	if f.FarmerEmail != "" {
		filter["farmer_email"] = f.FarmerEmail
	}
	cur, err := r.col.Find(ctx, filter, newestFirst())
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	out = []models.Order{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (err error) {
	defer metrics.ObserveStoreOp(database.Orders, "update", time.Now(), &err)

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete reports whether this call removed the order.
func (r *OrderRepository) Delete(ctx context.Context, id primitive.ObjectID) (deleted bool, err error) {
	defer metrics.ObserveStoreOp(database.Orders, "delete", time.Now(), &err)

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	return res.DeletedCount > 0, nil
}
