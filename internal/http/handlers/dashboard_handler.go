package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
)

type DashboardHandler struct {
	Catalog *services.CatalogService
	Sync    *services.SyncService
}

// GET /
func (h *DashboardHandler) CatalogPage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	cats, err := h.Catalog.Categories(ctx)
	if err != nil {
		applog.Error(c, "dashboard.categories.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the catalog"})
	}
	brands, err := h.Catalog.Brands(ctx)
	if err != nil {
		applog.Error(c, "dashboard.brands.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the catalog"})
	}
	return render(c, "dashboard", fiber.Map{
		"Title":      "B2B Catalog",
		"Categories": cats,
		"Brands":     brands,
	})
}

// GET /dashboard/sync
func (h *DashboardHandler) SyncPage(c *fiber.Ctx) error {
	runs, err := h.Sync.History(c.UserContext(), 20)
	if err != nil {
		applog.Error(c, "dashboard.sync.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load sync history"})
	}
	return render(c, "sync", fiber.Map{
		"Title":    "Catalog Sync",
		"Runs":     runs,
		"Running":  h.Sync.Running(),
		"Strategy": h.Sync.Opts.Strategy,
	})
}
