package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
	"b2bcatalog/internal/validate"
)

type CustomerService struct {
	Customers *repos.CustomerRepo
	Now       func() time.Time
}

func NewCustomerService(customers *repos.CustomerRepo) *CustomerService {
	return &CustomerService{Customers: customers, Now: time.Now}
}

// CustomerInput is the writable part of a customer. Nil fields are left
// unchanged on update.
type CustomerInput struct {
	Email        *string `json:"email"`
	BusinessName *string `json:"business_name"`
	ContactName  *string `json:"contact_name"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	PostalCode   *string `json:"postal_code"`
	TaxID        *string `json:"tax_id"`
	DiscountTier *string `json:"discount_tier"`
	Status       *string `json:"status"`
}

func (s *CustomerService) List(ctx context.Context, activeOnly bool) ([]domain.Customer, error) {
	return s.Customers.List(ctx, activeOnly)
}

func (s *CustomerService) Get(ctx context.Context, id int64) (domain.Customer, error) {
	return s.Customers.Get(ctx, id)
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (int64, error) {
	required := []struct {
		field string
		v     *string
	}{{"email", in.Email}, {"business_name", in.BusinessName}, {"contact_name", in.ContactName}}
	for _, r := range required {
		if r.v == nil || strings.TrimSpace(*r.v) == "" {
			return 0, domain.Invalid(r.field, "is required")
		}
	}
	c := domain.Customer{DiscountTier: "standard", Status: domain.CustomerActive}
	if err := apply(&c, in); err != nil {
		return 0, err
	}
	id, err := s.Customers.Create(ctx, c, s.Now())
	if errors.Is(err, domain.ErrConflict) {
		return 0, &conflictError{msg: "a customer with this email already exists"}
	}
	return id, err
}

func (s *CustomerService) Update(ctx context.Context, id int64, in CustomerInput) (domain.Customer, error) {
	c, err := s.Customers.Get(ctx, id)
	if err != nil {
		return c, err
	}
	if err := apply(&c, in); err != nil {
		return c, err
	}
	if err := s.Customers.Update(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return c, &conflictError{msg: "a customer with this email already exists"}
		}
		return c, err
	}
	return c, nil
}

// Deactivate is a soft delete; orders keep their customer.
func (s *CustomerService) Deactivate(ctx context.Context, id int64) error {
	return s.Customers.SetStatus(ctx, id, domain.CustomerInactive)
}

func apply(c *domain.Customer, in CustomerInput) error {
	if in.Email != nil {
		email, ok := validate.Email(*in.Email)
		if !ok {
			return domain.Invalid("email", "is not a valid address")
		}
		c.Email = strings.ToLower(email)
	}
	text := []struct {
		field string
		src   *string
		dst   *string
		max   int
		req   bool
	}{
		{"business_name", in.BusinessName, &c.BusinessName, 120, true},
		{"contact_name", in.ContactName, &c.ContactName, 80, true},
		{"phone", in.Phone, &c.Phone, 32, false},
		{"address", in.Address, &c.Address, 200, false},
		{"city", in.City, &c.City, 80, false},
		{"postal_code", in.PostalCode, &c.PostalCode, 16, false},
		{"tax_id", in.TaxID, &c.TaxID, 32, false},
	}
	for _, t := range text {
		if t.src == nil {
			continue
		}
		v, ok := validate.Text(*t.src, t.max)
		if !ok || (t.req && v == "") {
			return domain.Invalid(t.field, "must be 1-%d characters", t.max)
		}
		*t.dst = v
	}
	if in.DiscountTier != nil {
		tier, ok := validate.Tier(*in.DiscountTier)
		if !ok {
			return domain.Invalid("discount_tier", "unknown tier")
		}
		c.DiscountTier = tier
	}
	if in.Status != nil {
		switch *in.Status {
		case domain.CustomerActive, domain.CustomerInactive:
			c.Status = *in.Status
		default:
			return domain.Invalid("status", "must be active or inactive")
		}
	}
	return nil
}

// conflictError keeps the user-facing message while matching ErrConflict.
type conflictError struct{ msg string }

func (e *conflictError) Error() string { return e.msg }
func (e *conflictError) Unwrap() error { return domain.ErrConflict }
