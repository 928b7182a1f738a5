package domain

// Timestamps are stored as UTC text in this layout so they sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

type Product struct {
	ID           int64   `db:"id" json:"id"`
	GTIN         string  `db:"gtin" json:"gtin"`
	Name         string  `db:"name" json:"name"`
	Brand        string  `db:"brand" json:"brand"`
	Category     string  `db:"category" json:"category"`
	BasePrice    float64 `db:"base_price" json:"base_price"`
	SellingPrice float64 `db:"selling_price" json:"selling_price"`
	Inventory    int     `db:"inventory" json:"inventory"`
	Supplier     string  `db:"supplier" json:"supplier"`
	Description  string  `db:"description" json:"description"`
	ImageURL     string  `db:"image_url" json:"image_url"`
	ProductURL   string  `db:"product_url" json:"product_url"`
	Active       bool    `db:"active" json:"active"`
	LastUpdated  string  `db:"last_updated" json:"last_updated"`
}

// InStock reports whether the product can be ordered at all.
func (p Product) InStock() bool { return p.Active && p.Inventory > 0 }

type BrandSummary struct {
	Brand        string `db:"brand" json:"name"`
	ProductCount int    `db:"product_count" json:"product_count"`
	InStockCount int    `db:"in_stock_count" json:"in_stock_count"`
	UpdatedAt    string `db:"updated_at" json:"updated_at"`
}

type CategoryCount struct {
	Category     string `db:"category" json:"name"`
	ProductCount int    `db:"product_count" json:"product_count"`
}

// ProductFilter describes a catalog listing request after boundary validation.
type ProductFilter struct {
	Search      string
	Category    string
	Brand       string
	MinPrice    *float64
	MaxPrice    *float64
	InStockOnly bool
	Page        int
	PerPage     int
}

type ProductPage struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}
