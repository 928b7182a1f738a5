package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"b2bcatalog/internal/catalog"
	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
)

const (
	maxOrderLines = 200
	maxLineQty    = 100000
)

type OrderService struct {
	Orders    *repos.OrderRepo
	Customers *repos.CustomerRepo
	Now       func() time.Time
}

func NewOrderService(orders *repos.OrderRepo, customers *repos.CustomerRepo) *OrderService {
	return &OrderService{Orders: orders, Customers: customers, Now: time.Now}
}

// Create places an order priced from the stored catalog. Client prices are
// never read. Either every line is written and stock taken, or nothing is.
func (s *OrderService) Create(ctx context.Context, in domain.OrderInput) (domain.Order, error) {
	if in.CustomerID <= 0 {
		return domain.Order{}, domain.Invalid("customer_id", "is required")
	}
	if err := checkLines(in.Items); err != nil {
		return domain.Order{}, err
	}
	cust, err := s.Customers.Get(ctx, in.CustomerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Order{}, domain.Invalid("customer_id", "unknown customer")
	}
	if err != nil {
		return domain.Order{}, err
	}
	if cust.Status != domain.CustomerActive {
		return domain.Order{}, domain.Invalid("customer_id", "customer is not active")
	}

	now := s.Now().UTC()
	o := domain.Order{
		CustomerID:   cust.ID,
		OrderNumber:  orderNumber(now),
		Notes:        strings.TrimSpace(in.Notes),
		OrderDate:    now.Format(domain.TimeLayout),
		DeliveryDate: strings.TrimSpace(in.DeliveryDate),
	}
	id, _, err := s.Orders.Place(ctx, o, in.Items, priceLine)
	if err != nil {
		return domain.Order{}, err
	}
	return s.Orders.Get(ctx, id)
}

// priceLine checks one line against the product row and prices it.
func priceLine(p domain.Product, qty int) (repos.Line, error) {
	if !p.Active {
		return repos.Line{}, domain.Invalid("items", "product %d is not available", p.ID)
	}
	if qty > p.Inventory {
		return repos.Line{}, &domain.StockError{ProductID: p.ID, Requested: qty, Available: p.Inventory}
	}
	return repos.Line{Product: p, Quantity: qty, Total: catalog.LineTotal(p.SellingPrice, qty)}, nil
}

func checkLines(items []domain.LineRequest) error {
	if len(items) == 0 {
		return domain.Invalid("items", "at least one item is required")
	}
	if len(items) > maxOrderLines {
		return domain.Invalid("items", "at most %d lines", maxOrderLines)
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			return domain.Invalid("items", "line %d: product_id is required", i+1)
		}
		if it.Quantity < 1 || it.Quantity > maxLineQty {
			return domain.Invalid("items", "line %d: quantity must be between 1 and %d", i+1, maxLineQty)
		}
	}
	return nil
}

// orderNumber is BO + timestamp with a short random suffix so two orders in
// the same second do not collide.
func orderNumber(now time.Time) string {
	return "BO" + now.Format("20060102150405") + "-" + strings.ToUpper(uuid.NewString()[:6])
}

func (s *OrderService) Get(ctx context.Context, id int64) (domain.Order, error) {
	return s.Orders.Get(ctx, id)
}

func (s *OrderService) List(ctx context.Context, customerID int64, status string) ([]domain.Order, error) {
	return s.Orders.List(ctx, customerID, status, 100)
}

// UpdateStatus walks the order state machine. Cancelling puts the stock back.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, to string) (domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return o, err
	}
	if !domain.CanMoveOrder(o.Status, to) {
		return o, domain.Invalid("status", "cannot move order from %s to %s", o.Status, to)
	}
	if err := s.Orders.UpdateStatus(ctx, id, o.Status, to, to == domain.OrderCancelled); err != nil {
		return o, err
	}
	return s.Orders.Get(ctx, id)
}
