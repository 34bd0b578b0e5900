package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMountsWithPrefixAndMiddleware(t *testing.T) {
	r := New()
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Group", "orders")
			next.ServeHTTP(w, req)
		})
	}

	orders := r.Group("/api/orders", tag)
	orders.Delete("/{id}", "orders.destroy", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(req, "id")))
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/orders/abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Equal(t, "orders", rec.Header().Get("X-Group"))

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNamedRoutesAndURL(t *testing.T) {
	r := New()
	api := r.Group("api")
	api.Get("/products/farmer/{email}", "products.farmer", func(http.ResponseWriter, *http.Request) {})
	api.Put("/products/{id}", "products.update", func(http.ResponseWriter, *http.Request) {})
	r.Get("/", "", func(http.ResponseWriter, *http.Request) {})

	path, ok := r.Path("products.update")
	require.True(t, ok)
	assert.Equal(t, "/api/products/{id}", path)

	url, err := r.URL("products.farmer", map[string]string{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "/api/products/farmer/a@b.c", url)

	_, err = r.URL("products.farmer", nil)
	assert.Error(t, err)
	_, err = r.URL("missing", nil)
	assert.Error(t, err)

	infos := r.Routes()
	require.Len(t, infos, 3)
	assert.Equal(t, RouteInfo{Method: http.MethodGet, Path: "/", Name: ""}, infos[0])
	assert.Equal(t, "/api/products/farmer/{email}", infos[1].Path)
}
