package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/domain"
)

const customerCols = `
    id, email, business_name, contact_name, phone, address, city, postal_code,
    tax_id, discount_tier, status, created_at`

type CustomerRepo struct{ db *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) List(ctx context.Context, activeOnly bool) ([]domain.Customer, error) {
	q := `SELECT` + customerCols + ` FROM customers`
	if activeOnly {
		q += ` WHERE status = 'active'`
	}
	out := []domain.Customer{}
	err := r.db.SelectContext(ctx, &out, q+` ORDER BY business_name, id`)
	return out, err
}

func (r *CustomerRepo) Get(ctx context.Context, id int64) (domain.Customer, error) {
	var c domain.Customer
	err := r.db.GetContext(ctx, &c, `SELECT`+customerCols+` FROM customers WHERE id = ?`, id)
	return c, notFound(err)
}

func (r *CustomerRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM customers WHERE status = 'active'`)
	return n, err
}

// Create inserts c and returns its id. A taken email is domain.ErrConflict.
func (r *CustomerRepo) Create(ctx context.Context, c domain.Customer, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO customers
		  (email, business_name, contact_name, phone, address, city, postal_code, tax_id, discount_tier, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?)`,
		c.Email, c.BusinessName, c.ContactName, c.Phone, c.Address, c.City, c.PostalCode, c.TaxID, c.DiscountTier, stamp(now))
	if isUnique(err) {
		return 0, domain.ErrConflict
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update overwrites the editable fields of customer c.ID.
func (r *CustomerRepo) Update(ctx context.Context, c domain.Customer) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers SET
		  email = ?, business_name = ?, contact_name = ?, phone = ?, address = ?, city = ?,
		  postal_code = ?, tax_id = ?, discount_tier = ?, status = ?
		WHERE id = ?`,
		c.Email, c.BusinessName, c.ContactName, c.Phone, c.Address, c.City,
		c.PostalCode, c.TaxID, c.DiscountTier, c.Status, c.ID)
	if isUnique(err) {
		return domain.ErrConflict
	}
	return affected(res, err)
}

func (r *CustomerRepo) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE customers SET status = ? WHERE id = ?`, status, id)
	return affected(res, err)
}
