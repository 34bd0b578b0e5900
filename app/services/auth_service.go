package services

import (
	"context"
	"errors"
	"strings"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/pkg/auth"
	"github.com/farm2home/farm2home/pkg/validate"
)

// SignupInput is the signup request body.
type SignupInput struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,in=farmer,buyer"`
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type AuthService struct {
	users  UserStore
	hasher *auth.Hasher
}

func NewAuthService(users UserStore, hasher *auth.Hasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// Signup creates an account for (email, role). The same email may sign up
// once per role.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if errs := validate.Struct(&in); len(errs) > 0 {
		msg := "Missing fields"
		if in.Name != "" && in.Email != "" && in.Password != "" && in.Role != "" {
			msg = "Invalid role"
		}
		return nil, validationError(msg, errs)
	}

	_, err := s.users.FindByEmailRole(ctx, in.Email, in.Role)
	switch {
	case err == nil:
		return nil, &Error{Kind: KindConflict, Message: "User already exists"}
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, storeError("Failed to create user", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrTooLong) {
			return nil, validationError("Password is too long")
		}
		return nil, &Error{Kind: KindStore, Message: "Failed to create user", Err: err}
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, &Error{Kind: KindConflict, Message: "User already exists"}
		}
		return nil, storeError("Failed to create user", err)
	}
	return user, nil
}

// Login checks credentials. Unknown accounts and wrong passwords fail the
// same way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	invalid := &Error{Kind: KindAuth, Message: "Invalid credentials"}
	if in.Email == "" || in.Password == "" || in.Role == "" {
		return nil, invalid
	}

	user, err := s.users.FindByEmailRole(ctx, strings.TrimSpace(in.Email), in.Role)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalid
		}
		return nil, storeError("Failed to log in", err)
	}
	if err := s.hasher.Compare(user.Password, in.Password); err != nil {
		return nil, invalid
	}
	return user, nil
}
