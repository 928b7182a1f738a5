package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
)

const version = "1.0.0"

type StatusHandler struct {
	DB     *sqlx.DB
	Status *services.StatusService
	Debug  bool
}

// GET /api
func (h *StatusHandler) API(c *fiber.Ctx) error {
	env := "production"
	if h.Debug {
		env = "development"
	}
	return c.JSON(fiber.Map{
		"service":     "B2B Catalog API",
		"status":      "running",
		"version":     version,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": env,
	})
}

// GET /health
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.DB.PingContext(c.UserContext()); err != nil {
		applog.Error(c, "health.db", err, nil)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy", "database": "error", "timestamp": now,
		})
	}
	return c.JSON(fiber.Map{"status": "healthy", "database": "connected", "timestamp": now})
}

// GET /api/status
func (h *StatusHandler) System(c *fiber.Ctx) error {
	st, err := h.Status.Status(c.UserContext())
	if err != nil {
		return fail(c, "status", err)
	}
	return c.JSON(st)
}
