package handlers

import (
	"github.com/gofiber/fiber/v2"

	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
	"b2bcatalog/internal/validate"
)

type CustomerHandler struct {
	Customers *services.CustomerService
}

// GET /api/customers
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	activeOnly := c.Query("status") != "all"
	cs, err := h.Customers.List(c.UserContext(), activeOnly)
	if err != nil {
		return fail(c, "customers.list", err)
	}
	if cs == nil {
		cs = []domain.Customer{}
	}
	return c.JSON(fiber.Map{"customers": cs})
}

// GET /api/customers/:id
func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid customer id")
	}
	cust, err := h.Customers.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, "customers.get", err)
	}
	return c.JSON(cust)
}

// POST /api/customers
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var in services.CustomerInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	id, err := h.Customers.Create(c.UserContext(), in)
	if err != nil {
		return fail(c, "customers.create", err)
	}
	applog.Audit(c, "customers.create", map[string]any{"customer_id": id})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "customer_id": id})
}

// PUT /api/customers/:id
func (h *CustomerHandler) Update(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid customer id")
	}
	var in services.CustomerInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	cust, err := h.Customers.Update(c.UserContext(), id, in)
	if err != nil {
		return fail(c, "customers.update", err)
	}
	applog.Audit(c, "customers.update", map[string]any{"customer_id": id})
	return c.JSON(fiber.Map{"success": true, "customer": cust})
}

// DELETE /api/customers/:id
func (h *CustomerHandler) Deactivate(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid customer id")
	}
	if err := h.Customers.Deactivate(c.UserContext(), id); err != nil {
		return fail(c, "customers.deactivate", err)
	}
	applog.Audit(c, "customers.deactivate", map[string]any{"customer_id": id})
	return c.JSON(fiber.Map{"success": true, "customer_id": id})
}
