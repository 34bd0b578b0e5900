package controllers

import (
	"net/http"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/collection"
	"github.com/farm2home/farm2home/pkg/ctx"
)

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

func renderProducts(products []models.Product) []models.ProductJSON {
	return collection.Map(products, func(p models.Product) models.ProductJSON { return p.JSON() })
}

// Index handles GET /api/products.
func (pc *ProductController) Index(c *ctx.Context) {
	products, err := pc.catalog.List(c.Context(), "")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderProducts(products))
}

// ByFarmer handles GET /api/products/farmer/{email}.
func (pc *ProductController) ByFarmer(c *ctx.Context) {
	products, err := pc.catalog.List(c.Context(), pathParam(c, "email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderProducts(products))
}

// Store handles POST /api/products.
func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.DecodeJSON(&in) {
		return
	}

	product, err := pc.catalog.Add(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product.JSON())
}

// Update handles PUT /api/products/{id}.
func (pc *ProductController) Update(c *ctx.Context) {
	var in services.ProductInput
	if !c.DecodeJSON(&in) {
		return
	}

	if err := pc.catalog.Update(c.Context(), c.Param("id"), in); err != nil {
		fail(c, err)
		return
	}
	c.Message(http.StatusOK, "Product updated successfully")
}

// Destroy handles DELETE /api/products/{id}.
func (pc *ProductController) Destroy(c *ctx.Context) {
	if err := pc.catalog.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message(http.StatusOK, "Product deleted successfully")
}
