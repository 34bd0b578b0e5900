// Package services holds the business operations behind each endpoint.
// Services depend on the store interfaces below; app/repositories provides
// the MongoDB implementations.
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/pkg/queue"
)

type UserStore interface {
	FindByEmailRole(ctx context.Context, email, role string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpsertProfile(ctx context.Context, email, role string, fields bson.M) error
}

type ProductStore interface {
	Insert(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, farmerEmail string) ([]models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, u repositories.ProductUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error)

	Adjust(ctx context.Context, id primitive.ObjectID, delta int) (bool, error)
	ApplyMarked(ctx context.Context, id, adjID primitive.ObjectID, delta int) (bool, error)
	RevertMarked(ctx context.Context, id, adjID primitive.ObjectID, delta int) (bool, error)
	ClearMarker(ctx context.Context, id, adjID primitive.ObjectID) error
	HasMarker(ctx context.Context, id, adjID primitive.ObjectID) (bool, error)
}

type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	List(ctx context.Context, f repositories.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type AdjustmentStore interface {
	Insert(ctx context.Context, a *models.StockAdjustment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.StockAdjustment, error)
	Settle(ctx context.Context, id primitive.ObjectID, state, errMsg string) (bool, error)
	RecordAttempt(ctx context.Context, id primitive.ObjectID, errMsg string) error
	ListPending(ctx context.Context, cutoff time.Time) ([]models.StockAdjustment, error)
	AppliedFor(ctx context.Context, orderID primitive.ObjectID, reason string, exclude primitive.ObjectID) (bool, error)
}

// ImageStore offloads product images; storage.ImageStore implements it.
type ImageStore interface {
	Store(ctx context.Context, image string) (string, error)
	Release(ctx context.Context, ref string) error
}

// Dispatcher queues background jobs; *queue.Manager implements it.
type Dispatcher interface {
	DispatchAfter(ctx context.Context, job queue.Job, delay time.Duration) error
}
