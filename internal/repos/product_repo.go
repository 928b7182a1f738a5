package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/domain"
)

const productCols = `
    id, gtin, name, brand, category, base_price, selling_price, inventory,
    supplier, description, image_url, product_url, active, last_updated`

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// UpsertResult counts what a store phase did. Failures holds per-row errors.
type UpsertResult struct {
	Added    int
	Updated  int
	Failures []error
}

func (r UpsertResult) Errors() int { return len(r.Failures) }

func (r *ProductRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT`+productCols+` FROM products WHERE id = ?`, id)
	return p, notFound(err)
}

func (r *ProductRepo) GetByGTIN(ctx context.Context, gtin string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT`+productCols+` FROM products WHERE gtin = ?`, gtin)
	return p, notFound(err)
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE active = 1`)
	return n, err
}

// List applies f and returns one page plus the total match count.
func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	where := []string{"active = 1"}
	args := []any{}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(category) LIKE ? OR gtin LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Brand != "" {
		where = append(where, "brand = ?")
		args = append(args, f.Brand)
	}
	if f.MinPrice != nil {
		where = append(where, "selling_price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "selling_price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.InStockOnly {
		where = append(where, "inventory > 0")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products WHERE `+cond, args...); err != nil {
		return nil, 0, err
	}

	out := []domain.Product{}
	q := `SELECT` + productCols + ` FROM products WHERE ` + cond + ` ORDER BY name, id LIMIT ? OFFSET ?`
	err := r.db.SelectContext(ctx, &out, q, append(args, f.PerPage, (f.Page-1)*f.PerPage)...)
	return out, total, err
}

func (r *ProductRepo) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	out := []domain.CategoryCount{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT category, COUNT(*) AS product_count
		FROM products
		WHERE active = 1 AND category != ''
		GROUP BY category
		ORDER BY product_count DESC, category`)
	return out, err
}

// Brands reads the cached brand summary rather than grouping products.
func (r *ProductRepo) Brands(ctx context.Context) ([]domain.BrandSummary, error) {
	out := []domain.BrandSummary{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT brand, product_count, in_stock_count, updated_at
		FROM brand_summary
		ORDER BY product_count DESC, brand`)
	return out, err
}

// UpsertBatch merges ps by gtin inside one transaction. Matching rows get
// every mutable field overwritten; new gtins are inserted. A row that
// fails is counted and skipped. The brand summary is rebuilt before commit.
func (r *ProductRepo) UpsertBatch(ctx context.Context, ps []domain.Product, now time.Time) (UpsertResult, error) {
	var res UpsertResult
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	for _, p := range ps {
		var id int64
		err := tx.GetContext(ctx, &id, `SELECT id FROM products WHERE gtin = ?`, p.GTIN)
		switch {
		case err == nil:
			if err := updateProduct(ctx, tx, id, p); err != nil {
				res.Failures = append(res.Failures, fmt.Errorf("update %s: %w", p.GTIN, err))
				continue
			}
			res.Updated++
		case errors.Is(err, sql.ErrNoRows):
			if _, err := insertProduct(ctx, tx, 0, p); err != nil {
				res.Failures = append(res.Failures, fmt.Errorf("insert %s: %w", p.GTIN, err))
				continue
			}
			res.Added++
		default:
			res.Failures = append(res.Failures, fmt.Errorf("lookup %s: %w", p.GTIN, err))
		}
	}
	if err := rebuildBrandSummary(ctx, tx, now); err != nil {
		return UpsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

// ReplaceAll swaps the whole catalog for ps in one transaction. Readers see
// either the old or the new catalog, never an empty one. A gtin that was
// present before keeps its row id so order and quote items still resolve,
// and counts as updated; the rest count as added.
func (r *ProductRepo) ReplaceAll(ctx context.Context, ps []domain.Product, now time.Time) (UpsertResult, error) {
	var res UpsertResult
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	var existing []struct {
		ID   int64  `db:"id"`
		GTIN string `db:"gtin"`
	}
	if err := tx.SelectContext(ctx, &existing, `SELECT id, gtin FROM products`); err != nil {
		return res, err
	}
	prev := make(map[string]int64, len(existing))
	for _, e := range existing {
		prev[e.GTIN] = e.ID
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return res, err
	}
	for _, p := range ps {
		id, had := prev[p.GTIN]
		if _, err := insertProduct(ctx, tx, id, p); err != nil {
			res.Failures = append(res.Failures, fmt.Errorf("insert %s: %w", p.GTIN, err))
			continue
		}
		if had {
			res.Updated++
		} else {
			res.Added++
		}
	}
	if err := rebuildBrandSummary(ctx, tx, now); err != nil {
		return UpsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

func rebuildBrandSummary(ctx context.Context, tx *sqlx.Tx, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM brand_summary`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO brand_summary(brand, product_count, in_stock_count, updated_at)
		SELECT brand, COUNT(*), SUM(CASE WHEN inventory > 0 THEN 1 ELSE 0 END), ?
		FROM products
		WHERE active = 1 AND brand != ''
		GROUP BY brand`, stamp(now))
	return err
}

// insertProduct inserts p, reusing id when it is non-zero.
func insertProduct(ctx context.Context, tx *sqlx.Tx, id int64, p domain.Product) (int64, error) {
	args := []any{p.GTIN, p.Name, p.Brand, p.Category, p.BasePrice, p.SellingPrice, p.Inventory,
		p.Supplier, p.Description, p.ImageURL, p.ProductURL, p.Active, p.LastUpdated}
	cols := `gtin, name, brand, category, base_price, selling_price, inventory,
		supplier, description, image_url, product_url, active, last_updated`
	marks := `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`
	if id != 0 {
		cols = "id, " + cols
		marks = "?, " + marks
		args = append([]any{id}, args...)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO products(`+cols+`) VALUES (`+marks+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func updateProduct(ctx context.Context, tx *sqlx.Tx, id int64, p domain.Product) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products SET
		  name = ?, brand = ?, category = ?, base_price = ?, selling_price = ?, inventory = ?,
		  supplier = ?, description = ?, image_url = ?, product_url = ?, active = ?, last_updated = ?
		WHERE id = ?`,
		p.Name, p.Brand, p.Category, p.BasePrice, p.SellingPrice, p.Inventory,
		p.Supplier, p.Description, p.ImageURL, p.ProductURL, p.Active, p.LastUpdated, id)
	return err
}
