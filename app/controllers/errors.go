package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/ctx"
	"github.com/farm2home/farm2home/pkg/logger"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(k services.Kind) int {
	switch k {
	case services.KindValidation, services.KindConflict, services.KindInsufficientStock:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": ..., "details": ...}. Server-side faults are
// logged with the request id; anything untyped becomes a bare 500.
func fail(c *ctx.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		logger.WithCtx(c.Context()).Error("unhandled error", "path", c.Path(), "error", err)
		c.Error(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	status := statusFor(se.Kind)
	if status >= http.StatusInternalServerError {
		logger.WithCtx(c.Context()).Error(se.Message, "kind", se.Kind.String(), "error", se.Err)
	}
	if se.Details != nil {
		c.ErrorDetails(status, se.Message, se.Details)
		return
	}
	c.Error(status, se.Message)
}

// pathParam returns a URL parameter with percent-escapes decoded, since
// emails arrive as a%40b.com from encodeURIComponent.
func pathParam(c *ctx.Context, key string) string {
	raw := c.Param(key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
