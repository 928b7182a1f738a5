package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
	"b2bcatalog/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

type statusBody struct {
	Status      string   `json:"status"`
	QuotedTotal *float64 `json:"quoted_total"`
}

// POST /api/orders
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in domain.OrderInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	o, err := h.Orders.Create(c.UserContext(), in)
	if err != nil {
		return fail(c, "orders.create", err)
	}
	applog.Audit(c, "orders.create", map[string]any{
		"order_id": o.ID, "customer_id": o.CustomerID, "lines": len(o.Items), "total": o.TotalAmount,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"total_amount": o.TotalAmount,
		"order":        o,
	})
}

// GET /api/orders
func (h *OrderHandler) List(c *fiber.Ctx) error {
	var customerID int64
	if raw := c.Query("customer_id"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return badRequest(c, "customer_id", "invalid customer id")
		}
		customerID = id
	}
	status := strings.TrimSpace(c.Query("status"))
	orders, err := h.Orders.List(c.UserContext(), customerID, status)
	if err != nil {
		return fail(c, "orders.list", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// GET /api/orders/:id
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid order id")
	}
	o, err := h.Orders.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, "orders.get", err)
	}
	return c.JSON(o)
}

// POST /api/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid order id")
	}
	var body statusBody
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return badRequest(c, "status", "status is required")
	}
	o, err := h.Orders.UpdateStatus(c.UserContext(), id, body.Status)
	if err != nil {
		return fail(c, "orders.status", err)
	}
	applog.Audit(c, "orders.status", map[string]any{"order_id": id, "status": o.Status})
	return c.JSON(fiber.Map{"success": true, "order": o})
}
