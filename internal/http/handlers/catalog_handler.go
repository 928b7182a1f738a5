package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
	"b2bcatalog/internal/validate"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

// GET /api/products
func (h *CatalogHandler) Products(c *fiber.Ctx) error {
	f := domain.ProductFilter{
		Page:        validate.Int(c.Query("page"), 1),
		PerPage:     validate.Int(c.Query("per_page"), services.DefaultPerPage),
		InStockOnly: validate.Bool(c.Query("in_stock_only")),
	}
	if raw := c.Query("search"); strings.TrimSpace(raw) != "" {
		q, ok := validate.Q(raw)
		if !ok {
			return badRequest(c, "search", "invalid search text")
		}
		f.Search = q
	}
	var ok bool
	if f.Category, ok = validate.Text(c.Query("category"), 120); !ok {
		return badRequest(c, "category", "invalid category")
	}
	if f.Brand, ok = validate.Text(c.Query("brand"), 120); !ok {
		return badRequest(c, "brand", "invalid brand")
	}
	if f.MinPrice, ok = validate.Price(c.Query("min_price")); !ok {
		return badRequest(c, "min_price", "min_price must be a non-negative number")
	}
	if f.MaxPrice, ok = validate.Price(c.Query("max_price")); !ok {
		return badRequest(c, "max_price", "max_price must be a non-negative number")
	}

	page, err := h.Catalog.ListProducts(c.UserContext(), f)
	if err != nil {
		return fail(c, "catalog.list", err)
	}
	if page.Products == nil {
		page.Products = []domain.Product{}
	}
	return c.JSON(fiber.Map{
		"products": page.Products,
		"pagination": fiber.Map{
			"page":        page.Page,
			"per_page":    page.PerPage,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		},
		"filters_applied": fiber.Map{
			"search":        f.Search,
			"category":      f.Category,
			"brand":         f.Brand,
			"min_price":     f.MinPrice,
			"max_price":     f.MaxPrice,
			"in_stock_only": f.InStockOnly,
		},
	})
}

// GET /api/products/:id
func (h *CatalogHandler) Product(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid product id")
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return fail(c, "catalog.get", err)
	}
	return c.JSON(p)
}

// GET /api/products/gtin/:gtin
func (h *CatalogHandler) ProductByGTIN(c *fiber.Ctx) error {
	gtin, ok := validate.GTIN(c.Params("gtin"))
	if !ok {
		return badRequest(c, "gtin", "invalid gtin")
	}
	p, err := h.Catalog.GetProductByGTIN(c.UserContext(), gtin)
	if err != nil {
		return fail(c, "catalog.get", err)
	}
	return c.JSON(p)
}

// GET /api/brands
func (h *CatalogHandler) Brands(c *fiber.Ctx) error {
	bs, err := h.Catalog.Brands(c.UserContext())
	if err != nil {
		return fail(c, "catalog.brands", err)
	}
	if bs == nil {
		bs = []domain.BrandSummary{}
	}
	return c.JSON(fiber.Map{"brands": bs})
}

// GET /api/categories
func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	cs, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return fail(c, "catalog.categories", err)
	}
	if cs == nil {
		cs = []domain.CategoryCount{}
	}
	return c.JSON(fiber.Map{"categories": cs})
}

// POST /api/dev/sample-data
func (h *CatalogHandler) SampleData(c *fiber.Ctx) error {
	res, err := h.Catalog.SeedSampleData(c.UserContext())
	if err != nil {
		return fail(c, "catalog.sample", err)
	}
	applog.Audit(c, "catalog.sample.seed", map[string]any{"added": res.Added, "updated": res.Updated})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Sample data added",
		"added":   res.Added,
		"updated": res.Updated,
	})
}
