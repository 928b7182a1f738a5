package services

import (
	"context"
	"time"

	"b2bcatalog/internal/catalog"
	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

type CatalogService struct {
	Prods  *repos.ProductRepo
	Markup float64
	Now    func() time.Time
}

func NewCatalogService(prods *repos.ProductRepo, markup float64) *CatalogService {
	return &CatalogService{Prods: prods, Markup: markup, Now: time.Now}
}

// ListProducts clamps paging and returns one page of matches.
func (s *CatalogService) ListProducts(ctx context.Context, f domain.ProductFilter) (domain.ProductPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return domain.ProductPage{}, domain.Invalid("min_price", "greater than max_price")
	}
	items, total, err := s.Prods.List(ctx, f)
	if err != nil {
		return domain.ProductPage{}, err
	}
	return domain.ProductPage{
		Products:   items,
		Page:       f.Page,
		PerPage:    f.PerPage,
		Total:      total,
		TotalPages: (total + f.PerPage - 1) / f.PerPage,
	}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.Prods.Get(ctx, id)
}

func (s *CatalogService) GetProductByGTIN(ctx context.Context, gtin string) (domain.Product, error) {
	return s.Prods.GetByGTIN(ctx, gtin)
}

func (s *CatalogService) Brands(ctx context.Context) ([]domain.BrandSummary, error) {
	return s.Prods.Brands(ctx)
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	return s.Prods.Categories(ctx)
}

type sample struct {
	gtin, name, brand, category string
	base                        float64
	inventory                   int
	supplier, description       string
}

var samples = []sample{
	{"1234567890123", "Head & Shoulders Shampoo 400ml", "Procter & Gamble", "Hair Care", 7.50, 150, "Supplier A", "Anti-dandruff shampoo"},
	{"1234567890124", "Oral-B Pro Expert Toothbrush", "Procter & Gamble", "Oral Care", 3.80, 89, "Supplier B", "Professional toothbrush"},
	{"1234567890125", "Johnson Baby Powder 200g", "Johnson & Johnson", "Baby Care", 6.10, 203, "Supplier C", "Gentle baby powder"},
	{"1234567890126", "Colgate Total Toothpaste 75ml", "Colgate-Palmolive", "Oral Care", 3.45, 175, "Supplier D", "Complete protection toothpaste"},
	{"1234567890127", "Nivea Body Lotion 250ml", "Nivea", "Skin Care", 6.55, 95, "Supplier E", "Moisturizing body lotion"},
}

// SeedSampleData upserts a handful of demo products priced with the
// configured markup. Used by the dev endpoint only.
func (s *CatalogService) SeedSampleData(ctx context.Context) (repos.UpsertResult, error) {
	now := s.Now()
	ps := make([]domain.Product, 0, len(samples))
	for _, x := range samples {
		ps = append(ps, domain.Product{
			GTIN: x.gtin, Name: x.name, Brand: x.brand, Category: x.category,
			BasePrice: x.base, SellingPrice: catalog.SellingPrice(x.base, s.Markup),
			Inventory: x.inventory, Supplier: x.supplier, Description: x.description,
			Active: true, LastUpdated: now.UTC().Format(domain.TimeLayout),
		})
	}
	return s.Prods.UpsertBatch(ctx, ps, now)
}
