package seeders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/config"
	"github.com/farm2home/farm2home/pkg/auth"
)

// SamplePassword is the password of every seeded account.
const SamplePassword = "farm2home"

const (
	sampleFarmer = "ravi@farm.test"
	sampleBuyer  = "asha@buyer.test"
)

func init() {
	Register("users", SeedUsers)
	Register("products", SeedProducts)
}

// SeedUsers creates one farmer and one buyer. Existing accounts are left alone.
func SeedUsers(ctx context.Context, db *mongo.Database) error {
	users := repositories.NewUserRepository(db)
	hash, err := auth.NewHasher(config.BcryptCost()).Hash(SamplePassword)
	if err != nil {
		return err
	}

	for _, u := range []models.User{
		{Name: "Ravi Kumar", Email: sampleFarmer, Role: models.RoleFarmer, Location: "Nashik", Crops: []string{"tomato", "onion"}},
		{Name: "Asha Traders", Email: sampleBuyer, Role: models.RoleBuyer, BusinessName: "Asha Traders", BusinessType: "retail"},
	} {
		u.Password = hash
		if err := users.Create(ctx, &u); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
			return err
		}
	}
	return nil
}

// SeedProducts lists a few products for the sample farmer when they have none.
func SeedProducts(ctx context.Context, db *mongo.Database) error {
	products := repositories.NewProductRepository(db)
	existing, err := products.List(ctx, sampleFarmer)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, p := range []models.Product{
		{Name: "Tomato", Price: 40, Quantity: 120},
		{Name: "Onion", Price: 30, Quantity: 200},
		{Name: "Potato", Price: 25, Quantity: 8},
	} {
		p.FarmerEmail = sampleFarmer
		p.FarmerName = "Ravi Kumar"
		p.CreatedAt = now.Add(time.Duration(i) * time.Second)
		if err := products.Insert(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
