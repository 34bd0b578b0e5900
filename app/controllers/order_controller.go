package controllers

import (
	"net/http"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/collection"
	"github.com/farm2home/farm2home/pkg/ctx"
	"github.com/farm2home/farm2home/pkg/logger"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func renderOrders(orders []models.Order) []models.OrderJSON {
	return collection.Map(orders, func(o models.Order) models.OrderJSON { return o.JSON() })
}

// Store handles POST /api/orders.
func (oc *OrderController) Store(c *ctx.Context) {
	var in services.OrderInput
	if !c.DecodeJSON(&in) {
		return
	}

	order, err := oc.orders.Place(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	logger.WithCtx(c.Context()).Info("order placed",
		"order_id", order.ID.Hex(), "product_id", order.ProductID, "quantity", order.Quantity)
	c.JSON(http.StatusCreated, order.JSON())
}

// Index handles GET /api/orders.
func (oc *OrderController) Index(c *ctx.Context) {
	orders, err := oc.orders.List(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderOrders(orders))
}

// ByBuyer handles GET /api/orders/buyer/{email}.
func (oc *OrderController) ByBuyer(c *ctx.Context) {
	orders, err := oc.orders.ListByBuyer(c.Context(), pathParam(c, "email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderOrders(orders))
}

// ByFarmer handles GET /api/orders/farmer/{email}.
func (oc *OrderController) ByFarmer(c *ctx.Context) {
	orders, err := oc.orders.ListByFarmer(c.Context(), pathParam(c, "email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderOrders(orders))
}

// Show handles GET /api/orders/{id}.
func (oc *OrderController) Show(c *ctx.Context) {
	order, err := oc.orders.Get(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order.JSON())
}

// Update handles PUT /api/orders/{id}; only the status can change.
func (oc *OrderController) Update(c *ctx.Context) {
	var in struct {
		Status string `json:"status"`
	}
	if !c.DecodeJSON(&in) {
		return
	}

	if err := oc.orders.UpdateStatus(c.Context(), c.Param("id"), in.Status); err != nil {
		fail(c, err)
		return
	}
	c.Message(http.StatusOK, "Order updated successfully", "status", in.Status)
}

// Destroy handles DELETE /api/orders/{id}, restoring the order's stock.
func (oc *OrderController) Destroy(c *ctx.Context) {
	if err := oc.orders.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message(http.StatusOK, "Order deleted successfully and inventory restored")
}
