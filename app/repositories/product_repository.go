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

// ProductUpdate replaces name, price and quantity; Image is only written
// when non-nil.
type ProductUpdate struct {
	Name     string
	Price    float64
	Quantity int
	Image    *string
}

// ProductRepository handles the products collection, including the
// conditional stock updates the ledger is built on.
type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(database.Products)}
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) (err error) {
	defer metrics.ObserveStoreOp(database.Products, "insert", time.Now(), &err)

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err = r.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (p *models.Product, err error) {
	defer metrics.ObserveStoreOp(database.Products, "find_one", time.Now(), &err)

	var product models.Product
	if err = r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// List returns products newest first, optionally for one farmer.
func (r *ProductRepository) List(ctx context.Context, farmerEmail string) (out []models.Product, err error) {
	defer metrics.ObserveStoreOp(database.Products, "find", time.Now(), &err)

	filter := bson.M{}
	if farmerEmail != "" {
		filter["farmer_email"] = farmerEmail
	}
	cur, err := r.col.Find(ctx, filter, newestFirst())
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	out = []models.Product{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (err error) {
	defer metrics.ObserveStoreOp(database.Products, "update", time.Now(), &err)

	set := bson.M{
		"name":     u.Name,
		"price":    u.Price,
		"quantity": u.Quantity,
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the product and returns what was stored.
func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) (p *models.Product, err error) {
	defer metrics.ObserveStoreOp(database.Products, "delete", time.Now(), &err)

	var product models.Product
	if err = r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// Adjust moves stock by delta in one conditional update. A negative delta
// only applies while quantity >= -delta. Reports whether it applied.
func (r *ProductRepository) Adjust(ctx context.Context, id primitive.ObjectID, delta int) (applied bool, err error) {
	defer metrics.ObserveStoreOp(database.Products, "adjust", time.Now(), &err)

	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"quantity": delta}})
	if err != nil {
		return false, fmt.Errorf("adjust stock: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// ApplyMarked is Adjust plus pushing adjID onto pending_adjustments. The
// $ne guard makes a retry a no-op, and the marker proves the delta landed.
func (r *ProductRepository) ApplyMarked(ctx context.Context, id, adjID primitive.ObjectID, delta int) (applied bool, err error) {
	defer metrics.ObserveStoreOp(database.Products, "apply_marked", time.Now(), &err)

	filter := bson.M{
		"_id":                 id,
		"pending_adjustments": bson.M{"$ne": adjID},
	}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{
		"$inc":  bson.M{"quantity": delta},
		"$push": bson.M{"pending_adjustments": adjID},
	})
	if err != nil {
		return false, fmt.Errorf("apply marked adjustment: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// RevertMarked undoes a marked delta, only while the marker is present.
func (r *ProductRepository) RevertMarked(ctx context.Context, id, adjID primitive.ObjectID, delta int) (reverted bool, err error) {
	defer metrics.ObserveStoreOp(database.Products, "revert_marked", time.Now(), &err)

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "pending_adjustments": adjID},
		bson.M{
			"$inc":  bson.M{"quantity": -delta},
			"$pull": bson.M{"pending_adjustments": adjID},
		},
	)
	if err != nil {
		return false, fmt.Errorf("revert marked adjustment: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// ClearMarker settles a marked delta, keeping it.
func (r *ProductRepository) ClearMarker(ctx context.Context, id, adjID primitive.ObjectID) (err error) {
	defer metrics.ObserveStoreOp(database.Products, "clear_marker", time.Now(), &err)

	_, err = r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"pending_adjustments": adjID}},
	)
	if err != nil {
		return fmt.Errorf("clear marker: %w", err)
	}
	return nil
}

func (r *ProductRepository) HasMarker(ctx context.Context, id, adjID primitive.ObjectID) (ok bool, err error) {
	defer metrics.ObserveStoreOp(database.Products, "count", time.Now(), &err)

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id, "pending_adjustments": adjID})
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return n > 0, nil
}
