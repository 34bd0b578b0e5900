package routes

import (
	"github.com/farm2home/farm2home/app/controllers"
	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/ctx"
	"github.com/farm2home/farm2home/pkg/router"
)

// Services are the business operations the API exposes.
type Services struct {
	Auth      *services.AuthService
	Profiles  *services.ProfileService
	Catalog   *services.CatalogService
	Orders    *services.OrderService
	Analytics *services.AnalyticsService
}

// RegisterAPI mounts every JSON endpoint. Static segments such as /health
// are registered alongside {email} and {id}; chi matches them first.
func RegisterAPI(r *router.Router, s Services) {
	authController := controllers.NewAuthController(s.Auth)
	farmerController := controllers.NewProfileController(s.Profiles, models.RoleFarmer)
	buyerController := controllers.NewProfileController(s.Profiles, models.RoleBuyer)
	productController := controllers.NewProductController(s.Catalog)
	orderController := controllers.NewOrderController(s.Orders)
	analyticsController := controllers.NewAnalyticsController(s.Analytics)

	r.Get("/", "index", ctx.Wrap(controllers.Index))

	api := r.Group("/api")
	api.Get("/health", "health", ctx.Wrap(controllers.Health))

	auth := api.Group("/auth")
	auth.Get("/health", "auth.health", ctx.Wrap(controllers.ServiceHealth("auth", "Auth")))
	auth.Post("/signup", "auth.signup", ctx.Wrap(authController.Signup))
	auth.Post("/login", "auth.login", ctx.Wrap(authController.Login))

	farmer := api.Group("/farmer")
	farmer.Get("/health", "farmer.health", ctx.Wrap(controllers.ServiceHealth("farmer", "Farmer")))
	farmer.Get("/{email}", "farmer.show", ctx.Wrap(farmerController.Show))
	farmer.Post("/", "farmer.save", ctx.Wrap(farmerController.Save))

	buyer := api.Group("/buyer")
	buyer.Get("/health", "buyer.health", ctx.Wrap(controllers.ServiceHealth("buyer", "Buyer")))
	buyer.Get("/{email}", "buyer.show", ctx.Wrap(buyerController.Show))
	buyer.Post("/", "buyer.save", ctx.Wrap(buyerController.Save))

	products := api.Group("/products")
	products.Get("/health", "products.health", ctx.Wrap(controllers.ServiceHealth("products", "Products")))
	products.Get("/", "products.index", ctx.Wrap(productController.Index))
	products.Post("/", "products.store", ctx.Wrap(productController.Store))
	products.Get("/farmer/{email}", "products.farmer", ctx.Wrap(productController.ByFarmer))
	products.Put("/{id}", "products.update", ctx.Wrap(productController.Update))
	products.Delete("/{id}", "products.destroy", ctx.Wrap(productController.Destroy))

	orders := api.Group("/orders")
	orders.Get("/health", "orders.health", ctx.Wrap(controllers.ServiceHealth("orders", "Orders")))
	orders.Get("/", "orders.index", ctx.Wrap(orderController.Index))
	orders.Post("/", "orders.store", ctx.Wrap(orderController.Store))
	orders.Get("/buyer/{email}", "orders.buyer", ctx.Wrap(orderController.ByBuyer))
	orders.Get("/farmer/{email}", "orders.farmer", ctx.Wrap(orderController.ByFarmer))
	orders.Get("/{id}", "orders.show", ctx.Wrap(orderController.Show))
	orders.Put("/{id}", "orders.update", ctx.Wrap(orderController.Update))
	orders.Delete("/{id}", "orders.destroy", ctx.Wrap(orderController.Destroy))

	analytics := api.Group("/analytics")
	analytics.Get("/health", "analytics.health", ctx.Wrap(controllers.ServiceHealth("analytics", "Analytics")))
	analytics.Get("/farmer/{email}", "analytics.farmer", ctx.Wrap(analyticsController.Farmer))
}
