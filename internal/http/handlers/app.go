package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"b2bcatalog/internal/config"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/metrics"
)

// NewApp builds the fiber app with middleware and every route registered.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.Reload(cfg.Debug)

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    1 << 20,
		ErrorHandler: errorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(metrics.Middleware())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/health" || p == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	// ---------- Pages ----------
	app.Get("/", d.DashboardHandler.CatalogPage)
	app.Get("/dashboard/sync", d.DashboardHandler.SyncPage)

	// ---------- Ops ----------
	app.Get("/health", d.StatusHandler.Health)
	app.Get("/metrics", metrics.Handler())

	// ---------- API ----------
	api := app.Group("/api")
	api.Get("/", d.StatusHandler.API)
	api.Get("/status", d.StatusHandler.System)

	api.Get("/products", d.CatalogHandler.Products)
	api.Get("/products/gtin/:gtin", d.CatalogHandler.ProductByGTIN)
	api.Get("/products/:id", d.CatalogHandler.Product)
	api.Get("/brands", d.CatalogHandler.Brands)
	api.Get("/categories", d.CatalogHandler.Categories)

	admin := RequireAdminKey(cfg.AdminKeyHash)

	api.Get("/customers", admin, d.CustomerHandler.List)
	api.Get("/customers/:id", admin, d.CustomerHandler.Get)
	api.Post("/customers", d.CustomerHandler.Create)
	api.Put("/customers/:id", admin, d.CustomerHandler.Update)
	api.Delete("/customers/:id", admin, d.CustomerHandler.Deactivate)

	api.Post("/orders", d.OrderHandler.Create)
	api.Get("/orders", admin, d.OrderHandler.List)
	api.Get("/orders/:id", admin, d.OrderHandler.Get)
	api.Post("/orders/:id/status", admin, d.OrderHandler.UpdateStatus)

	api.Post("/quotes", d.QuoteHandler.Submit)
	api.Get("/quotes", admin, d.QuoteHandler.List)
	api.Get("/quotes/:id", admin, d.QuoteHandler.Get)
	api.Post("/quotes/:id/status", admin, d.QuoteHandler.UpdateStatus)

	syncLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|sync"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.sync.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many sync requests, retry later"})
		},
	})
	api.Get("/sync/test", admin, d.SyncHandler.Test)
	api.Post("/sync/start", admin, syncLimiter, d.SyncHandler.Start)
	api.Get("/sync/status", d.SyncHandler.Status)
	api.Get("/sync/runs/:id", d.SyncHandler.Run)

	if cfg.Debug {
		api.Post("/dev/sample-data", d.CatalogHandler.SampleData)
	}

	// 404
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Endpoint not found"})
	})
	return app
}

// errorHandler answers client errors raised by fiber with their own status
// and everything else with a generic 500 that leaks no internals.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
