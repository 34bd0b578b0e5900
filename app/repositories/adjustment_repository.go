package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/pkg/database"
	"github.com/farm2home/farm2home/pkg/metrics"
)

// AdjustmentRepository is the stock ledger journal.
type AdjustmentRepository struct {
	col *mongo.Collection
}

func NewAdjustmentRepository(db *mongo.Database) *AdjustmentRepository {
	return &AdjustmentRepository{col: db.Collection(database.StockAdjustments)}
}

func (r *AdjustmentRepository) Insert(ctx context.Context, a *models.StockAdjustment) (err error) {
	defer metrics.ObserveStoreOp(database.StockAdjustments, "insert", time.Now(), &err)

	if _, err = r.col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

func (r *AdjustmentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (a *models.StockAdjustment, err error) {
	defer metrics.ObserveStoreOp(database.StockAdjustments, "find_one", time.Now(), &err)

	var adj models.StockAdjustment
	if err = r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&adj); err != nil {
		return nil, notFound(err)
	}
	return &adj, nil
}

// Settle moves a pending entry to a terminal state. Reports false when the
// entry was already settled by someone else.
func (r *AdjustmentRepository) Settle(ctx context.Context, id primitive.ObjectID, state, errMsg string) (ok bool, err error) {
	defer metrics.ObserveStoreOp(database.StockAdjustments, "settle", time.Now(), &err)

	set := bson.M{"state": state, "updated_at": time.Now().UTC()}
	if errMsg != "" {
		set["error"] = errMsg
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "state": models.AdjustmentPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("settle adjustment: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// RecordAttempt notes a failed compensation attempt on a pending entry.
func (r *AdjustmentRepository) RecordAttempt(ctx context.Context, id primitive.ObjectID, errMsg string) (err error) {
	defer metrics.ObserveStoreOp(database.StockAdjustments, "attempt", time.Now(), &err)

	_, err = r.col.UpdateOne(ctx,
		bson.M{"_id": id, "state": models.AdjustmentPending},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"error": errMsg, "updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListPending returns pending entries created before cutoff, oldest first.
func (r *AdjustmentRepository) ListPending(ctx context.Context, cutoff time.Time) (out []models.StockAdjustment, err error) {
	defer metrics.ObserveStoreOp(database.StockAdjustments, "find", time.Now(), &err)

	cur, err := r.col.Find(ctx,
		bson.M{"state": models.AdjustmentPending, "created_at": bson.M{"$lt": cutoff}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find pending adjustments: %w", err)
	}
	out = []models.StockAdjustment{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode adjustments: %w", err)
	}
	return out, nil
}

// AppliedFor reports whether another entry for orderID with reason has
// already settled as applied.
func (r *AdjustmentRepository) AppliedFor(ctx context.Context, orderID primitive.ObjectID, reason string, exclude primitive.ObjectID) (ok bool, err error) {
	defer metrics.ObserveStoreOp(database.StockAdjustments, "count", time.Now(), &err)

	n, err := r.col.CountDocuments(ctx, bson.M{
		"order_id": orderID,
		"reason":   reason,
		"state":    models.AdjustmentApplied,
		"_id":      bson.M{"$ne": exclude},
	})
	if err != nil {
		return false, fmt.Errorf("count applied adjustments: %w", err)
	}
	return n > 0, nil
}
