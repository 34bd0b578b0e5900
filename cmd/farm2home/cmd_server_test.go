package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintRoutes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRoutes(&out))

	listing := out.String()
	assert.Contains(t, listing, "METHOD")
	assert.Contains(t, listing, "/api/orders/{id}")
	assert.Contains(t, listing, "orders.destroy")
	assert.Contains(t, listing, "/metrics")
}

func TestCommandsAreRegistered(t *testing.T) {
	for _, name := range []string{"serve", "route:list", "db:indexes", "seed", "stock:recover", "queue:work", "schedule:list"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
