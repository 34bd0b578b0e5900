package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/pkg/auth"
)

func newAuth() (*AuthService, *memUsers) {
	users := newMemUsers()
	return NewAuthService(users, auth.NewHasher(4)), users
}

func TestSignupAndLogin(t *testing.T) {
	svc, users := newAuth()
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Name: " Ravi ", Email: "ravi@farm.test", Password: "s3cret", Role: models.RoleFarmer})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", u.Name)
	assert.False(t, u.ID.IsZero())

	stored, err := users.FindByEmailRole(ctx, "ravi@farm.test", models.RoleFarmer)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.Password)

	got, err := svc.Login(ctx, LoginInput{Email: "ravi@farm.test", Password: "s3cret", Role: models.RoleFarmer})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestSignupSameEmailPerRole(t *testing.T) {
	svc, _ := newAuth()
	ctx := context.Background()
	in := SignupInput{Name: "Ravi", Email: "ravi@farm.test", Password: "pw", Role: models.RoleFarmer}

	_, err := svc.Signup(ctx, in)
	require.NoError(t, err)

	_, err = svc.Signup(ctx, in)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "User already exists", err.(*Error).Message)

	in.Role = models.RoleBuyer
	_, err = svc.Signup(ctx, in)
	require.NoError(t, err, "the same email may hold a buyer account too")
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newAuth()
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "a@b", Password: "pw", Role: models.RoleBuyer})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Missing fields", err.(*Error).Message)
	assert.Contains(t, err.(*Error).Details, "name")

	_, err = svc.Signup(ctx, SignupInput{Name: "A", Email: "a@b", Password: "pw", Role: "admin"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Invalid role", err.(*Error).Message)

	_, err = svc.Signup(ctx, SignupInput{Name: "A", Email: "a@b", Password: strings.Repeat("x", 80), Role: models.RoleBuyer})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Password is too long", err.(*Error).Message)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	svc, _ := newAuth()
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Name: "A", Email: "a@b", Password: "right", Role: models.RoleBuyer})
	require.NoError(t, err)

	for _, in := range []LoginInput{
		{Email: "a@b", Password: "wrong", Role: models.RoleBuyer},
		{Email: "a@b", Password: "right", Role: models.RoleFarmer},
		{Email: "x@y", Password: "right", Role: models.RoleBuyer},
		{Email: "a@b", Role: models.RoleBuyer},
	} {
		_, err := svc.Login(ctx, in)
		require.ErrorIs(t, err, ErrAuth)
		assert.Equal(t, "Invalid credentials", err.(*Error).Message)
	}
}

func TestLoginStoreFailure(t *testing.T) {
	svc, users := newAuth()
	users.findErr = errStoreDown

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@b", Password: "pw", Role: models.RoleBuyer})
	require.ErrorIs(t, err, ErrStore)
}

func TestProfileTemplateAndSave(t *testing.T) {
	users := newMemUsers()
	svc := NewProfileService(users)
	ctx := context.Background()

	empty, err := svc.Get(ctx, "ravi@farm.test", models.RoleFarmer)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProfile("ravi@farm.test", models.RoleFarmer), empty)

	require.NoError(t, svc.Save(ctx, models.RoleFarmer, map[string]any{
		"email":            "ravi@farm.test",
		"name":             "Ravi",
		"crops":            "wheat, rice,",
		"experience_years": 12.0,
		"business_name":    "ignored for farmers",
	}))

	got, err := svc.Get(ctx, "ravi@farm.test", models.RoleFarmer)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", got["name"])
	assert.Equal(t, []string{"wheat", "rice"}, got["crops"])
	assert.Equal(t, "12", got["experience_years"])
	assert.Equal(t, "", got["phone"])
	assert.NotContains(t, got, "business_name")

	buyer, err := svc.Get(ctx, "ravi@farm.test", models.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, "", buyer["name"], "profiles are kept per role")
	assert.Equal(t, models.RoleBuyer, buyer["role"])
}

func TestProfileSaveRequiresEmail(t *testing.T) {
	svc := NewProfileService(newMemUsers())
	err := svc.Save(context.Background(), models.RoleBuyer, map[string]any{"name": "Asha"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Email is required", err.(*Error).Message)
}
