package controllers

import (
	"net/http"
	"time"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/pkg/ctx"
)

// Version is reported by the API index.
const Version = "1.0"

// Index handles GET /.
func Index(c *ctx.Context) {
	c.JSON(http.StatusOK, map[string]any{
		"message": "Farm2Home API Server",
		"version": Version,
		"endpoints": map[string]string{
			"health":    "/api/health",
			"products":  "/api/products",
			"orders":    "/api/orders",
			"auth":      "/api/auth",
			"farmer":    "/api/farmer",
			"buyer":     "/api/buyer",
			"analytics": "/api/analytics",
		},
	})
}

// Health handles GET /api/health.
func Health(c *ctx.Context) {
	c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"message":   "Farm2Home Backend is running",
		"timestamp": models.ISOTime(time.Now()),
		"service":   "Farm2Home API",
	})
}

// ServiceHealth returns the liveness handler for one API area, e.g.
// GET /api/orders/health.
func ServiceHealth(service, title string) ctx.HandlerFunc {
	return func(c *ctx.Context) {
		c.JSON(http.StatusOK, map[string]string{
			"status":    "healthy",
			"service":   service,
			"timestamp": models.ISOTime(time.Now()),
			"message":   title + " service is running",
		})
	}
}
