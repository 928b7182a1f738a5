package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
	"b2bcatalog/internal/validate"
)

// fail maps a service error onto a JSON response. Anything unexpected is
// handed to the app ErrorHandler, which answers with a generic 500.
func fail(c *fiber.Ctx, action string, err error) error {
	var (
		ve *domain.ValidationError
		se *domain.StockError
	)
	switch {
	case errors.As(err, &se):
		applog.Security(c, action+".stock", map[string]any{"product_id": se.ProductID, "requested": se.Requested, "available": se.Available})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": se.Error(), "product_id": se.ProductID})
	case errors.As(err, &ve):
		applog.Security(c, "validation.fail", map[string]any{"action": action, "field": ve.Field})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, services.ErrSyncInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		applog.Security(c, action+".conflict", nil)
		msg := err.Error()
		if msg == domain.ErrConflict.Error() {
			msg = "the resource was changed by another request"
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
	}
	applog.Error(c, action+".fail", err, nil)
	return err
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// pathID reads the :id route param.
func pathID(c *fiber.Ctx) (int64, bool) {
	return validate.ID(c.Params("id"))
}
