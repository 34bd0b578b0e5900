// Package kernel assembles the HTTP handler: global middleware, the API
// routes, /metrics and the local image disk.
package kernel

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/farm2home/farm2home/app/routes"
	"github.com/farm2home/farm2home/config"
	"github.com/farm2home/farm2home/pkg/metrics"
	"github.com/farm2home/farm2home/pkg/middleware"
	"github.com/farm2home/farm2home/pkg/reqid"
	"github.com/farm2home/farm2home/pkg/response"
	"github.com/farm2home/farm2home/pkg/router"
)

// Options configures NewRouter.
type Options struct {
	Services routes.Services
	// StorageRoot serves offloaded images under /storage/ when set.
	StorageRoot string
	CORS        middleware.CORSOptions
}

// DefaultOptions reads CORS origins from config.
func DefaultOptions(s routes.Services) Options {
	cors := middleware.DefaultCORSOptions()
	cors.AllowedOrigins = config.CORSOrigins()
	return Options{Services: s, CORS: cors}
}

// NewRouter builds the router with every route registered. The CLI
// route:list command lists it without serving.
func NewRouter(opts Options) *router.Router {
	r := router.New()

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics: total latency including panics
	//  2. Recovery: panics become a JSON 500
	//  3. Request ID: before anything logs
	//  4. Logger: request-scoped logger carrying request_id
	//  5. CORS, answering preflight before routing
	//  6. StripSlashes: /api/orders/ ≡ /api/orders
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(opts.CORS))
	r.Use(chimw.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Handle("/metrics", "metrics", metrics.Handler())
	if opts.StorageRoot != "" {
		files := http.StripPrefix("/storage/", http.FileServer(http.Dir(opts.StorageRoot)))
		r.Handle("/storage/*", "storage", files)
	}

	routes.RegisterAPI(r, opts.Services)
	return r
}

// Handler returns the http.Handler for the server.
func Handler(opts Options) http.Handler {
	return NewRouter(opts).Handler()
}
