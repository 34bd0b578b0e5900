package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/pkg/event"
	"github.com/farm2home/farm2home/pkg/storage"
)

func strPtr(s string) *string { return &s }

func listing(name, farmer string, at time.Time) models.Product {
	return models.Product{Name: name, Price: 10, Quantity: 5, FarmerEmail: farmer, CreatedAt: at}
}

func TestAddProduct(t *testing.T) {
	products := newMemProducts()
	svc := NewCatalogService(products, nil)
	now := time.Date(2024, 7, 15, 9, 30, 0, 987654321, time.UTC)
	svc.now = func() time.Time { return now }

	p, err := svc.Add(context.Background(), ProductInput{
		Name:        "Onion",
		Price:       "30.5",
		Quantity:    12.0,
		Image:       strPtr("https://img.test/onion.png"),
		FarmerEmail: "ravi@farm.test",
		FarmerName:  "Ravi",
	})
	require.NoError(t, err)
	assert.False(t, p.ID.IsZero())
	assert.Equal(t, 30.5, p.Price)
	assert.Equal(t, 12, p.Quantity)
	assert.Equal(t, "https://img.test/onion.png", p.Image)
	assert.Equal(t, now.Truncate(time.Millisecond), p.CreatedAt)

	stored := products.get(p.ID)
	assert.Equal(t, "Onion", stored.Name)
}

func TestAddProductValidation(t *testing.T) {
	svc := NewCatalogService(newMemProducts(), nil)
	valid := func() ProductInput {
		return ProductInput{Name: "Onion", Price: 10.0, Quantity: 5.0, FarmerEmail: "f@x"}
	}

	cases := []struct {
		name   string
		mutate func(*ProductInput)
		msg    string
	}{
		{"no farmer", func(in *ProductInput) { in.FarmerEmail = "" }, "All fields including farmer email are required"},
		{"no name", func(in *ProductInput) { in.Name = " " }, "All fields including farmer email are required"},
		{"zero price", func(in *ProductInput) { in.Price = 0.0 }, "All fields including farmer email are required"},
		{"text price", func(in *ProductInput) { in.Price = "cheap" }, "Price must be a number"},
		{"negative price", func(in *ProductInput) { in.Price = -1.0 }, "Price must not be negative"},
		{"price beyond float range", func(in *ProductInput) { in.Price = "1e400" }, "Price is too large"},
		{"price near float max", func(in *ProductInput) { in.Price = 1.7e308 }, "Price is too large"},
		{"text quantity", func(in *ProductInput) { in.Quantity = "some" }, "Quantity must be a whole number"},
		{"quantity beyond int", func(in *ProductInput) { in.Quantity = 1e19 }, "Quantity must be a whole number"},
		{"max int quantity", func(in *ProductInput) { in.Quantity = "9223372036854775807" }, "Quantity is too large"},
		{"negative quantity", func(in *ProductInput) { in.Quantity = -3.0 }, "Quantity must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.mutate(&in)
			_, err := svc.Add(context.Background(), in)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tc.msg, err.(*Error).Message)
		})
	}
}

func TestAddProductOffloadsImage(t *testing.T) {
	images := &memImages{}
	svc := NewCatalogService(newMemProducts(), images)

	p, err := svc.Add(context.Background(), ProductInput{
		Name: "Onion", Price: 10.0, Quantity: 5.0, FarmerEmail: "f@x",
		Image: strPtr("data:image/png;base64,iVBORw0KGgo="),
	})
	require.NoError(t, err)
	assert.Contains(t, p.Image, "https://cdn.test/products/")
	assert.Len(t, images.stored, 1)

	images.err = fmt.Errorf("wrap: %w", storage.ErrBadDataURL)
	_, err = svc.Add(context.Background(), ProductInput{
		Name: "Onion", Price: 10.0, Quantity: 5.0, FarmerEmail: "f@x",
		Image: strPtr("data:nonsense"),
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Invalid image data", err.(*Error).Message)
}

func TestListProducts(t *testing.T) {
	products := newMemProducts()
	svc := NewCatalogService(products, nil)
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	products.seed(tomatoes(1))
	a := products.seed(listing("Onion", "f1@x", base))
	b := products.seed(listing("Garlic", "f1@x", base.Add(time.Hour)))
	products.seed(listing("Potato", "f2@x", base.Add(2*time.Hour)))

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mine, err := svc.List(context.Background(), "f1@x")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, b.ID, mine[0].ID)
	assert.Equal(t, a.ID, mine[1].ID)

	products.listErr = errStoreDown
	_, err = svc.List(context.Background(), "")
	assert.Equal(t, "Failed to fetch products", err.(*Error).Message)
	_, err = svc.List(context.Background(), "f1@x")
	assert.Equal(t, "Failed to fetch farmer products", err.(*Error).Message)
}

func TestUpdateProduct(t *testing.T) {
	products := newMemProducts()
	images := &memImages{}
	svc := NewCatalogService(products, images)
	seeded := tomatoes(10)
	seeded.Image = "https://cdn.test/products/old.png"
	p := products.seed(seeded)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, p.ID.Hex(), ProductInput{Name: "Cherry Tomato", Price: "55", Quantity: "8"}))
	got := products.get(p.ID)
	assert.Equal(t, "Cherry Tomato", got.Name)
	assert.Equal(t, 55.0, got.Price)
	assert.Equal(t, 8, got.Quantity)
	assert.Equal(t, "https://cdn.test/products/old.png", got.Image, "no image keeps the old one")
	assert.Empty(t, images.released)

	require.NoError(t, svc.Update(ctx, p.ID.Hex(), ProductInput{
		Name: "Cherry Tomato", Price: 55.0, Quantity: 8.0,
		Image: strPtr("data:image/png;base64,iVBORw0KGgo="),
	}))
	got = products.get(p.ID)
	assert.NotEqual(t, "https://cdn.test/products/old.png", got.Image)
	assert.Equal(t, []string{"https://cdn.test/products/old.png"}, images.released)

	err := svc.Update(ctx, "xyz", ProductInput{Name: "x", Price: 1.0, Quantity: 1.0})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Invalid product ID format", err.(*Error).Message)

	err = svc.Update(ctx, primitive.NewObjectID().Hex(), ProductInput{Name: "x", Price: 1.0, Quantity: 1.0})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Product not found", err.(*Error).Message)
}

func TestDeleteProduct(t *testing.T) {
	products := newMemProducts()
	images := &memImages{}
	svc := NewCatalogService(products, images)
	seeded := tomatoes(10)
	seeded.Image = "https://cdn.test/products/t.png"
	p := products.seed(seeded)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, p.ID.Hex()))
	assert.Equal(t, []string{"https://cdn.test/products/t.png"}, images.released)

	require.ErrorIs(t, svc.Delete(ctx, p.ID.Hex()), ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "nope"), ErrValidation)
}

func TestCatalogChangesFireEvents(t *testing.T) {
	event.Flush()
	defer event.Flush()

	var changed []string
	event.Listen(EventProductChanged, func(p any) {
		changed = append(changed, p.(models.Product).FarmerEmail)
	})

	svc := NewCatalogService(newMemProducts(), nil)
	ctx := context.Background()

	p, err := svc.Add(ctx, ProductInput{Name: "Okra", Price: 20.0, Quantity: 3.0, FarmerEmail: "ravi@farm.test"})
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, p.ID.Hex(), ProductInput{Name: "Okra", Price: 22.0, Quantity: 4.0}))
	require.ErrorIs(t, svc.Update(ctx, primitive.NewObjectID().Hex(), ProductInput{Name: "x", Price: 1.0, Quantity: 1.0}), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, p.ID.Hex()))

	assert.Equal(t, []string{"ravi@farm.test", "ravi@farm.test", "ravi@farm.test"}, changed)
}
