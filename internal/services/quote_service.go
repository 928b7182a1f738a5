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
	"b2bcatalog/internal/validate"
)

type QuoteService struct {
	Quotes    *repos.QuoteRepo
	Prods     *repos.ProductRepo
	Customers *repos.CustomerRepo
	Now       func() time.Time
}

func NewQuoteService(quotes *repos.QuoteRepo, prods *repos.ProductRepo, customers *repos.CustomerRepo) *QuoteService {
	return &QuoteService{Quotes: quotes, Prods: prods, Customers: customers, Now: time.Now}
}

// Submit records a quote request. Stock is not checked or reserved; the
// current selling price is kept as a reference for the reviewer.
func (s *QuoteService) Submit(ctx context.Context, in domain.QuoteInput) (domain.QuoteRequest, error) {
	if err := checkLines(in.Items); err != nil {
		return domain.QuoteRequest{}, err
	}
	q := domain.QuoteRequest{Notes: strings.TrimSpace(in.Notes)}

	if in.CustomerID != nil {
		c, err := s.Customers.Get(ctx, *in.CustomerID)
		if errors.Is(err, domain.ErrNotFound) {
			return q, domain.Invalid("customer_id", "unknown customer")
		}
		if err != nil {
			return q, err
		}
		q.CustomerID = &c.ID
		q.Email, q.BusinessName = c.Email, c.BusinessName
	}
	if in.Email != "" {
		email, ok := validate.Email(in.Email)
		if !ok {
			return q, domain.Invalid("email", "is not a valid address")
		}
		q.Email = strings.ToLower(email)
	}
	if in.BusinessName != "" {
		name, ok := validate.Text(in.BusinessName, 120)
		if !ok {
			return q, domain.Invalid("business_name", "must be 1-120 characters")
		}
		q.BusinessName = name
	}
	if q.Email == "" {
		return q, domain.Invalid("email", "is required")
	}
	if q.BusinessName == "" {
		return q, domain.Invalid("business_name", "is required")
	}

	for _, lr := range in.Items {
		p, err := s.Prods.Get(ctx, lr.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return q, domain.Invalid("items", "product %d does not exist", lr.ProductID)
		}
		if err != nil {
			return q, err
		}
		q.Items = append(q.Items, domain.QuoteItem{
			ProductID: p.ID, GTIN: p.GTIN, ProductName: p.Name,
			Quantity: lr.Quantity, UnitPrice: p.SellingPrice,
		})
	}

	q.QuoteNumber = "QR-" + strings.ToUpper(uuid.NewString()[:8])
	id, err := s.Quotes.Create(ctx, q, s.Now())
	if err != nil {
		return q, err
	}
	return s.Quotes.Get(ctx, id)
}

func (s *QuoteService) Get(ctx context.Context, id int64) (domain.QuoteRequest, error) {
	return s.Quotes.Get(ctx, id)
}

func (s *QuoteService) List(ctx context.Context, status string) ([]domain.QuoteRequest, error) {
	return s.Quotes.List(ctx, status, 100)
}

// UpdateStatus walks the quote state machine. Moving to quoted without a
// total uses the sum of the reference prices.
func (s *QuoteService) UpdateStatus(ctx context.Context, id int64, to string, quotedTotal *float64) (domain.QuoteRequest, error) {
	q, err := s.Quotes.Get(ctx, id)
	if err != nil {
		return q, err
	}
	if !domain.CanMoveQuote(q.Status, to) {
		return q, domain.Invalid("status", "cannot move quote from %s to %s", q.Status, to)
	}
	if quotedTotal != nil && *quotedTotal < 0 {
		return q, domain.Invalid("quoted_total", "must not be negative")
	}
	if to == domain.QuoteQuoted && quotedTotal == nil {
		lines := make([]float64, 0, len(q.Items))
		for _, it := range q.Items {
			lines = append(lines, catalog.LineTotal(it.UnitPrice, it.Quantity))
		}
		total := catalog.Sum(lines...)
		quotedTotal = &total
	}
	if err := s.Quotes.UpdateStatus(ctx, id, q.Status, to, quotedTotal, s.Now()); err != nil {
		return q, err
	}
	return s.Quotes.Get(ctx, id)
}
