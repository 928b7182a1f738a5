package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/domain"
)

const quoteCols = `
    id, quote_number, customer_id, email, business_name, notes, status,
    quoted_total, created_at, updated_at`

type QuoteRepo struct{ db *sqlx.DB }

func NewQuoteRepo(db *sqlx.DB) *QuoteRepo { return &QuoteRepo{db: db} }

// Create stores the request and its item snapshots in one transaction.
func (r *QuoteRepo) Create(ctx context.Context, q domain.QuoteRequest, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ts := stamp(now)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO quote_requests(quote_number, customer_id, email, business_name, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.QuoteNumber, q.CustomerID, q.Email, q.BusinessName, q.Notes, domain.QuotePending, ts, ts)
	if isUnique(err) {
		return 0, domain.ErrConflict
	}
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, it := range q.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quote_items(quote_id, product_id, gtin, product_name, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, it.ProductID, it.GTIN, it.ProductName, it.Quantity, it.UnitPrice); err != nil {
			return 0, err
		}
	}
	return id, tx.Commit()
}

func (r *QuoteRepo) Get(ctx context.Context, id int64) (domain.QuoteRequest, error) {
	var q domain.QuoteRequest
	if err := r.db.GetContext(ctx, &q, `SELECT`+quoteCols+` FROM quote_requests WHERE id = ?`, id); err != nil {
		return q, notFound(err)
	}
	q.Items = []domain.QuoteItem{}
	err := r.db.SelectContext(ctx, &q.Items, `
		SELECT id, quote_id, product_id, gtin, product_name, quantity, unit_price
		FROM quote_items WHERE quote_id = ? ORDER BY id`, id)
	return q, err
}

func (r *QuoteRepo) List(ctx context.Context, status string, limit int) ([]domain.QuoteRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT` + quoteCols + ` FROM quote_requests`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	out := []domain.QuoteRequest{}
	err := r.db.SelectContext(ctx, &out, q+` ORDER BY created_at DESC, id DESC LIMIT ?`, append(args, limit)...)
	return out, err
}

// UpdateStatus is a compare-and-set on the current status so two admins
// cannot both move the same quote.
func (r *QuoteRepo) UpdateStatus(ctx context.Context, id int64, from, to string, quotedTotal *float64, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE quote_requests
		SET status = ?, quoted_total = COALESCE(?, quoted_total), updated_at = ?
		WHERE id = ? AND status = ?`, to, quotedTotal, stamp(now), id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}
	return nil
}
