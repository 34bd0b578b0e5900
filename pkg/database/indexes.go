package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Indexes lists every index the service relies on, by collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		Users: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}, {Key: "role", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_role_unique"),
			},
		},
		Products: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "farmer_email", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		Orders: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "buyer_email", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "farmer_email", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		StockAdjustments: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		FailedJobs: {
			{Keys: bson.D{{Key: "failed_at", Value: -1}}},
		},
	}
}

// EnsureIndexes creates any missing index. Creating an existing index with
// the same spec is a no-op in MongoDB, so this is safe on every boot.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range Indexes() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("database: indexes on %s: %w", coll, err)
		}
	}
	return nil
}
