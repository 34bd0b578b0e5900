package seeders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleSeedersRegisterInOrder(t *testing.T) {
	assert.Equal(t, []string{"users", "products"}, Names())
}
