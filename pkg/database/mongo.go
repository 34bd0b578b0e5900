// Package database owns the MongoDB client: connecting, index setup and the
// transaction runner the stock ledger uses when the deployment supports it.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/farm2home/farm2home/config"
)

// Collection names.
const (
	Users            = "users"
	Products         = "products"
	Orders           = "orders"
	StockAdjustments = "stock_adjustments"
	FailedJobs       = "failed_jobs"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

// Connect opens the client, verifies it with a ping and selects the
// configured database. Returns an error instead of exiting so the caller can
// shut down gracefully.
func Connect(ctx context.Context) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(config.MongoURI()).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(5 * time.Minute).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	Client = client
	DB = client.Database(config.MongoDatabase())
	return DB, nil
}

// Disconnect closes the client opened by Connect.
func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	return Client.Disconnect(ctx)
}

// Ping reports whether the primary is reachable.
func Ping(ctx context.Context) error {
	if Client == nil {
		return fmt.Errorf("database: not connected")
	}
	return Client.Ping(ctx, readpref.Primary())
}
