package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farm2home/farm2home/pkg/validate"
)

type signupInput struct {
	Name     string `json:"name"     validate:"required,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,in=farmer,buyer"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(signupInput{
		Name:     "Ravi",
		Email:    "ravi@farm.in",
		Password: "s3cret",
		Role:     "farmer",
	})
	assert.False(t, validate.HasErrors(errs), errs)
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(&signupInput{})
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Equal(t, "The role field is required.", errs["role"])
}

func TestInRule(t *testing.T) {
	errs := validate.Struct(signupInput{Name: "a", Email: "a@b.co", Password: "x", Role: "admin"})
	assert.Equal(t, "The selected role is invalid.", errs["role"])

	errs = validate.Struct(signupInput{Name: "a", Email: "a@b.co", Password: "x", Role: "buyer"})
	assert.Empty(t, errs)
}

func TestMinRuleIsNotMistakenForIn(t *testing.T) {
	type in struct {
		Name string `json:"name" validate:"required,min=3,max=5"`
	}
	assert.Contains(t, validate.Struct(in{Name: "ab"}), "name")
	assert.Contains(t, validate.Struct(in{Name: "abcdef"}), "name")
	assert.Empty(t, validate.Struct(in{Name: "abcd"}))
}

func TestLooseJSONValues(t *testing.T) {
	type in struct {
		Price    any `json:"price"    validate:"required,numeric,min=0"`
		Quantity any `json:"quantity" validate:"required,integer,min=1"`
	}

	assert.Empty(t, validate.Struct(in{Price: 12.5, Quantity: float64(3)}))
	assert.Empty(t, validate.Struct(in{Price: "12.5", Quantity: "3"}))

	errs := validate.Struct(in{Price: "abc", Quantity: 2.5})
	assert.Equal(t, "The price field must be a number.", errs["price"])
	assert.Equal(t, "The quantity field must be an integer.", errs["quantity"])

	errs = validate.Struct(in{Price: nil, Quantity: float64(0)})
	assert.Contains(t, errs["price"], "required")
	assert.Contains(t, errs["quantity"], "required")
}

func TestObjectIDRule(t *testing.T) {
	type in struct {
		ProductID string `json:"product_id" validate:"required,objectid"`
	}
	assert.Empty(t, validate.Struct(in{ProductID: "507f1f77bcf86cd799439011"}))
	assert.Contains(t, validate.Struct(in{ProductID: "not-an-id"}), "product_id")
}

func TestNullableSkipsRules(t *testing.T) {
	type in struct {
		Email string `json:"email" validate:"nullable,email"`
	}
	assert.Empty(t, validate.Struct(in{Email: ""}))
	assert.Empty(t, validate.Struct(in{Email: "asha@buyer.test"}))
	assert.Equal(t, "The email must be a valid email address.", validate.Struct(in{Email: "asha"})["email"])
}

func TestNumericBounds(t *testing.T) {
	type in struct {
		Quantity int `json:"quantity" validate:"min=0,max=100000"`
	}
	assert.Contains(t, validate.Struct(in{Quantity: -1}), "quantity")
	assert.Empty(t, validate.Struct(in{Quantity: 0}))
}

func TestInListFollowedByAnotherRule(t *testing.T) {
	type in struct {
		Status string `json:"status" validate:"in=pending,confirmed,shipped,max=9"`
	}
	assert.Empty(t, validate.Struct(in{Status: "shipped"}))
	assert.Equal(t, "The selected status is invalid.", validate.Struct(in{Status: "lost"})["status"])
}
