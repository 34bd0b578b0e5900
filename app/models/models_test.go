package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProfileFillsRoleTemplate(t *testing.T) {
	farmer := (&User{Email: "f@x.com", Role: RoleFarmer, Name: "Ravi"}).Profile()
	assert.Equal(t, []string{}, farmer["crops"])
	assert.Equal(t, "", farmer["experience_years"])
	assert.Equal(t, "Ravi", farmer["name"])
	assert.NotContains(t, farmer, "business_name")
	assert.NotContains(t, farmer, "password")

	buyer := DefaultProfile("b@x.com", RoleBuyer)
	assert.Equal(t, "buyer", buyer["role"])
	assert.Equal(t, "", buyer["business_type"])
	assert.NotContains(t, buyer, "crops")
}

func TestAccountHidesPassword(t *testing.T) {
	id := primitive.NewObjectID()
	u := &User{ID: id, Name: "A", Email: "a@x.com", Password: "hash", Role: RoleBuyer}
	raw, err := json.Marshal(u.Account())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.Contains(t, string(raw), id.Hex())
}

func TestProductJSON(t *testing.T) {
	id := primitive.NewObjectID()
	p := &Product{
		ID:        id,
		Name:      "Tomato",
		Price:     40.5,
		Quantity:  10,
		CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	out := p.JSON()
	assert.Equal(t, id.Hex(), out.ID)
	assert.Nil(t, out.Image)
	assert.Equal(t, "2024-03-01T09:30:00.000000", out.CreatedAt)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"image":null`)
	assert.NotContains(t, string(raw), "pending_adjustments")
}

func TestOrderJSONDefaultsStatus(t *testing.T) {
	o := &Order{ID: primitive.NewObjectID(), Quantity: 2}
	assert.Equal(t, OrderConfirmed, o.JSON().Status)
}

func TestStockStatus(t *testing.T) {
	assert.Equal(t, "Out of Stock", StockStatus(0))
	assert.Equal(t, "Low Stock", StockStatus(1))
	assert.Equal(t, "Low Stock", StockStatus(5))
	assert.Equal(t, "Good Stock", StockStatus(6))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidRole("farmer"))
	assert.False(t, ValidRole("admin"))
	assert.True(t, ValidOrderStatus("shipped"))
	assert.False(t, ValidOrderStatus("lost"))
}
