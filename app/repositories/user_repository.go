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

// UserRepository handles the users collection. Accounts are keyed by
// (email, role).
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(database.Users)}
}

// FindByEmailRole looks up one account.
func (r *UserRepository) FindByEmailRole(ctx context.Context, email, role string) (u *models.User, err error) {
	defer metrics.ObserveStoreOp(database.Users, "find_one", time.Now(), &err)

	var user models.User
	err = r.col.FindOne(ctx, bson.M{"email": email, "role": role}).Decode(&user)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Create inserts a new account and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (err error) {
	defer metrics.ObserveStoreOp(database.Users, "insert", time.Now(), &err)

	res, err := r.col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

// UpsertProfile sets fields on the (email, role) account, creating it when
// missing.
func (r *UserRepository) UpsertProfile(ctx context.Context, email, role string, fields bson.M) (err error) {
	defer metrics.ObserveStoreOp(database.Users, "upsert", time.Now(), &err)

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["role"] = role

	_, err = r.col.UpdateOne(ctx,
		bson.M{"email": email, "role": role},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
