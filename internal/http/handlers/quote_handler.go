package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
)

type QuoteHandler struct {
	Quotes *services.QuoteService
}

// POST /api/quotes
func (h *QuoteHandler) Submit(c *fiber.Ctx) error {
	var in domain.QuoteInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	q, err := h.Quotes.Submit(c.UserContext(), in)
	if err != nil {
		return fail(c, "quotes.submit", err)
	}
	applog.Audit(c, "quotes.submit", map[string]any{"quote_id": q.ID, "lines": len(q.Items)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"quote_id":     q.ID,
		"quote_number": q.QuoteNumber,
		"message":      "Quote request submitted",
	})
}

// GET /api/quotes
func (h *QuoteHandler) List(c *fiber.Ctx) error {
	qs, err := h.Quotes.List(c.UserContext(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		return fail(c, "quotes.list", err)
	}
	if qs == nil {
		qs = []domain.QuoteRequest{}
	}
	return c.JSON(fiber.Map{"quotes": qs})
}

// GET /api/quotes/:id
func (h *QuoteHandler) Get(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid quote id")
	}
	q, err := h.Quotes.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, "quotes.get", err)
	}
	return c.JSON(q)
}

// POST /api/quotes/:id/status
func (h *QuoteHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid quote id")
	}
	var body statusBody
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return badRequest(c, "status", "status is required")
	}
	q, err := h.Quotes.UpdateStatus(c.UserContext(), id, body.Status, body.QuotedTotal)
	if err != nil {
		return fail(c, "quotes.status", err)
	}
	applog.Audit(c, "quotes.status", map[string]any{"quote_id": id, "status": q.Status})
	return c.JSON(fiber.Map{"success": true, "quote": q})
}
