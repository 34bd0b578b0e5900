package services

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
)

type ProfileService struct {
	users UserStore
}

func NewProfileService(users UserStore) *ProfileService {
	return &ProfileService{users: users}
}

// Get returns the stored profile, or the empty template when there is none.
func (s *ProfileService) Get(ctx context.Context, email, role string) (map[string]any, error) {
	user, err := s.users.FindByEmailRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.DefaultProfile(email, role), nil
		}
		return nil, storeError("Failed to fetch profile", err)
	}
	return user.Profile(), nil
}

// Save upserts the (email, role) profile from a raw request body. Every
// template field is written; missing ones become empty.
func (s *ProfileService) Save(ctx context.Context, role string, in map[string]any) error {
	email := strings.TrimSpace(toText(in["email"]))
	if email == "" {
		return validationError("Email is required")
	}

	fields := bson.M{
		"name":     toText(in["name"]),
		"phone":    toText(in["phone"]),
		"location": toText(in["location"]),
	}
	switch role {
	case models.RoleFarmer:
		fields["crops"] = toStrings(in["crops"])
		fields["farm_size"] = toText(in["farm_size"])
		fields["experience_years"] = toText(in["experience_years"])
	case models.RoleBuyer:
		fields["business_name"] = toText(in["business_name"])
		fields["business_type"] = toText(in["business_type"])
	default:
		return validationError("Invalid role")
	}

	err := s.users.UpsertProfile(ctx, email, role, fields)
	if errors.Is(err, repositories.ErrDuplicate) {
		// Lost an upsert race on the unique index; the document exists now.
		err = s.users.UpsertProfile(ctx, email, role, fields)
	}
	if err != nil {
		return storeError("Failed to save profile", err)
	}
	return nil
}
