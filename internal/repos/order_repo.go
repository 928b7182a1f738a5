package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/catalog"
	"b2bcatalog/internal/domain"
)

const orderCols = `
    o.id, o.order_number, o.customer_id, COALESCE(c.business_name,'') AS business_name,
    o.total_amount, o.status, o.notes, o.order_date, o.delivery_date`

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// Line is a validated order line ready to be written.
type Line struct {
	Product  domain.Product
	Quantity int
	Total    float64
}

// Place writes the order header and its lines and takes the stock, all in
// one transaction. Every line is read and checked before anything is
// written; the first line that cannot be served aborts the whole order.
// price decides the unit price of a line from the product row read in the
// same transaction.
func (r *OrderRepo) Place(ctx context.Context, o domain.Order, lines []domain.LineRequest, price func(domain.Product, int) (Line, error)) (int64, []domain.OrderItem, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	checked := make([]Line, 0, len(lines))
	for _, lr := range lines {
		var p domain.Product
		err := tx.GetContext(ctx, &p, `SELECT`+productCols+` FROM products WHERE id = ?`, lr.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, domain.Invalid("items", "product %d does not exist", lr.ProductID)
		}
		if err != nil {
			return 0, nil, err
		}
		l, err := price(p, lr.Quantity)
		if err != nil {
			return 0, nil, err
		}
		checked = append(checked, l)
	}

	amounts := make([]float64, len(checked))
	for i, l := range checked {
		amounts[i] = l.Total
	}
	total := catalog.Sum(amounts...)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders(customer_id, order_number, total_amount, status, notes, order_date, delivery_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.CustomerID, o.OrderNumber, total, domain.OrderPending, o.Notes, o.OrderDate, o.DeliveryDate)
	if isUnique(err) {
		return 0, nil, domain.ErrConflict
	}
	if err != nil {
		return 0, nil, err
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return 0, nil, err
	}

	items := make([]domain.OrderItem, 0, len(checked))
	for _, l := range checked {
		it := domain.OrderItem{
			OrderID: orderID, ProductID: l.Product.ID, GTIN: l.Product.GTIN, ProductName: l.Product.Name,
			Quantity: l.Quantity, UnitPrice: l.Product.SellingPrice, LineTotal: l.Total,
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_items(order_id, product_id, gtin, product_name, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.OrderID, it.ProductID, it.GTIN, it.ProductName, it.Quantity, it.UnitPrice, it.LineTotal)
		if err != nil {
			return 0, nil, err
		}
		it.ID, _ = res.LastInsertId()
		if err := takeStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return 0, nil, err
		}
		items = append(items, it)
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	return orderID, items, nil
}

// takeStock subtracts qty only when that much is on hand.
func takeStock(ctx context.Context, tx *sqlx.Tx, productID int64, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products SET inventory = inventory - ?
		WHERE id = ? AND inventory >= ?`, qty, productID, qty)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var have int
		_ = tx.GetContext(ctx, &have, `SELECT inventory FROM products WHERE id = ?`, productID)
		return &domain.StockError{ProductID: productID, Requested: qty, Available: have}
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, `
		SELECT`+orderCols+`
		FROM orders o LEFT JOIN customers c ON c.id = o.customer_id
		WHERE o.id = ?`, id)
	if err != nil {
		return o, notFound(err)
	}
	o.Items = []domain.OrderItem{}
	err = r.db.SelectContext(ctx, &o.Items, `
		SELECT id, order_id, product_id, gtin, product_name, quantity, unit_price, line_total
		FROM order_items WHERE order_id = ? ORDER BY id`, id)
	return o, err
}

func (r *OrderRepo) List(ctx context.Context, customerID int64, status string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	where := "1 = 1"
	args := []any{}
	if customerID > 0 {
		where += " AND o.customer_id = ?"
		args = append(args, customerID)
	}
	if status != "" {
		where += " AND o.status = ?"
		args = append(args, status)
	}
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT`+orderCols+`
		FROM orders o LEFT JOIN customers c ON c.id = o.customer_id
		WHERE `+where+`
		ORDER BY o.order_date DESC, o.id DESC
		LIMIT ?`, append(args, limit)...)
	return out, err
}

func (r *OrderRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM orders`)
	return n, err
}

// UpdateStatus moves an order from one status to another. When restock is
// set the line quantities go back on the shelf in the same transaction.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id int64, from, to string, restock bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}
	if restock {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET inventory = inventory + (
			  SELECT SUM(oi.quantity) FROM order_items oi
			  WHERE oi.order_id = ? AND oi.product_id = products.id)
			WHERE id IN (SELECT product_id FROM order_items WHERE order_id = ?)`, id, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
