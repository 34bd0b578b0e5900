package ctx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	appctx "github.com/farm2home/farm2home/pkg/ctx"
)

func TestWrapAndJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.JSON(http.StatusCreated, map[string]any{"ok": true})
		assert.Equal(t, http.StatusCreated, c.WrittenStatus())
	})(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestParamFromChi(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/orders/{id}", appctx.Wrap(func(c *appctx.Context) {
		c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/665f1c", nil))
	assert.JSONEq(t, `{"id":"665f1c"}`, rec.Body.String())
}

func TestBindJSONValid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"ravi@farm.in","role":"farmer"}`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Email string `json:"email" validate:"required,email"`
			Role  string `json:"role"  validate:"required,in=farmer,buyer"`
		}
		if !c.BindJSON(&input) {
			t.Error("expected BindJSON to succeed")
			return
		}
		assert.Equal(t, "farmer", input.Role)
		c.Message(http.StatusOK, "ok")
	})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONRejects(t *testing.T) {
	cases := map[string]string{
		"malformed": `{"email":`,
		"empty":     ``,
		"invalid":   `{"email":"nope","role":"admin"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

			appctx.Wrap(func(c *appctx.Context) {
				var input struct {
					Email string `json:"email" validate:"required,email"`
					Role  string `json:"role"  validate:"required,in=farmer,buyer"`
				}
				assert.False(t, c.BindJSON(&input))
			})(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Contains(t, rec.Body.String(), `"details"`)
		})
	}
}

func TestMessageWithExtraFields(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Message(http.StatusOK, "Order updated successfully", "status", "shipped")
	})(rec, httptest.NewRequest(http.MethodPut, "/", nil))

	assert.JSONEq(t, `{"message":"Order updated successfully","status":"shipped"}`, rec.Body.String())
}

func TestClientIP(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")

	appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "1.2.3.4", c.ClientIP())
	})(rec, req)
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.NotFound("Order not found")
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Order not found"}`, rec.Body.String())
}
