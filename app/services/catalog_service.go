package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/pkg/event"
	"github.com/farm2home/farm2home/pkg/logger"
	"github.com/farm2home/farm2home/pkg/storage"
)

// ProductInput is the create/update request body. Price and quantity may
// arrive as numbers or numeric strings.
type ProductInput struct {
	Name        string  `json:"name"`
	Price       any     `json:"price"`
	Quantity    any     `json:"quantity"`
	Image       *string `json:"image"`
	FarmerEmail string  `json:"farmer_email"`
	FarmerName  string  `json:"farmer_name"`
}

type CatalogService struct {
	products ProductStore
	images   ImageStore
	now      func() time.Time
}

// NewCatalogService wires the catalog. images may be nil to keep every
// image reference as sent.
func NewCatalogService(products ProductStore, images ImageStore) *CatalogService {
	return &CatalogService{products: products, images: images, now: time.Now}
}

func (s *CatalogService) Add(ctx context.Context, in ProductInput) (*models.Product, error) {
	if absent(in.Name) || absent(in.Price) || absent(in.Quantity) || absent(in.FarmerEmail) {
		return nil, validationError("All fields including farmer email are required")
	}

	price, quantity, err := coerceStock(in)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		Price:       price,
		Quantity:    quantity,
		FarmerEmail: in.FarmerEmail,
		FarmerName:  in.FarmerName,
		// Mongo keeps milliseconds; truncate so the reply matches reads.
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	if in.Image != nil && *in.Image != "" {
		ref, err := s.storeImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		product.Image = ref
	}

	if err := s.products.Insert(ctx, product); err != nil {
		s.releaseImage(ctx, product.Image)
		return nil, storeError("Failed to save product", err)
	}
	event.Fire(EventProductChanged, *product)
	return product, nil
}

// List returns every product, or one farmer's when farmerEmail is set,
// newest first.
func (s *CatalogService) List(ctx context.Context, farmerEmail string) ([]models.Product, error) {
	products, err := s.products.List(ctx, farmerEmail)
	if err != nil {
		msg := "Failed to fetch products"
		if farmerEmail != "" {
			msg = "Failed to fetch farmer products"
		}
		return nil, storeError(msg, err)
	}
	return products, nil
}

// Update replaces name, price and quantity; the image only changes when a
// non-empty one is sent.
func (s *CatalogService) Update(ctx context.Context, id string, in ProductInput) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return validationError("Invalid product ID format")
	}

	price, quantity, err := coerceStock(in)
	if err != nil {
		return err
	}
	update := repositories.ProductUpdate{Name: in.Name, Price: price, Quantity: quantity}

	// Missing here still surfaces as not-found from Update below.
	existing, _ := s.products.FindByID(ctx, oid)

	var previous string
	if in.Image != nil && *in.Image != "" {
		if existing != nil {
			previous = existing.Image
		}
		ref, err := s.storeImage(ctx, *in.Image)
		if err != nil {
			return err
		}
		update.Image = &ref
	}

	if err := s.products.Update(ctx, oid, update); err != nil {
		if update.Image != nil {
			s.releaseImage(ctx, *update.Image)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError("Product not found")
		}
		return storeError("Failed to update product", err)
	}

	if update.Image != nil && previous != *update.Image {
		s.releaseImage(ctx, previous)
	}
	if existing != nil {
		event.Fire(EventProductChanged, *existing)
	}
	return nil
}

// Delete removes a product. Orders that reference it are kept.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return validationError("Invalid product ID format")
	}

	product, err := s.products.Delete(ctx, oid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError("Product not found")
		}
		return storeError("Failed to delete product", err)
	}

	s.releaseImage(ctx, product.Image)
	event.Fire(EventProductChanged, *product)
	return nil
}

func (s *CatalogService) storeImage(ctx context.Context, image string) (string, error) {
	if s.images == nil {
		return image, nil
	}
	ref, err := s.images.Store(ctx, image)
	if err != nil {
		if errors.Is(err, storage.ErrBadDataURL) {
			return "", validationError("Invalid image data", err.Error())
		}
		return "", storeError("Failed to save product image", err)
	}
	return ref, nil
}

// releaseImage is best-effort; a leftover file is only logged.
func (s *CatalogService) releaseImage(ctx context.Context, ref string) {
	if s.images == nil || ref == "" {
		return
	}
	if err := s.images.Release(ctx, ref); err != nil {
		logger.WithCtx(ctx).Warn("catalog: release image failed", "ref", ref, "error", err)
	}
}

func coerceStock(in ProductInput) (float64, int, error) {
	price, err := toDecimal(in.Price)
	if err != nil {
		return 0, 0, validationError("Price must be a number")
	}
	if price.IsNegative() {
		return 0, 0, validationError("Price must not be negative")
	}
	if price.GreaterThan(maxPrice) {
		return 0, 0, validationError("Price is too large")
	}

	quantity, err := toInt(in.Quantity)
	if err != nil {
		return 0, 0, validationError("Quantity must be a whole number")
	}
	if quantity < 0 {
		return 0, 0, validationError("Quantity must not be negative")
	}
	if quantity > maxQuantity {
		return 0, 0, validationError("Quantity is too large")
	}

	return price.InexactFloat64(), quantity, nil
}
