package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
	"b2bcatalog/internal/services"
)

func TestOrderPricedFromCatalog(t *testing.T) {
	db := memdb(t)
	ps := seedProducts(t, db, stocked("111", "Shampoo", 8.25, 10), stocked("222", "Soap", 2.20, 5))
	cust := seedCustomer(t, db, "shop@example.com")
	svc := services.NewOrderService(repos.NewOrderRepo(db), repos.NewCustomerRepo(db))
	ctx := context.Background()

	o, err := svc.Create(ctx, domain.OrderInput{
		CustomerID: cust,
		Items: []domain.LineRequest{
			{ProductID: ps[0].ID, Quantity: 3},
			{ProductID: ps[1].ID, Quantity: 1},
		},
		Notes: " deliver to back door ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderPending || !strings.HasPrefix(o.OrderNumber, "BO") {
		t.Fatalf("order header: %+v", o)
	}
	if o.TotalAmount != 26.95 {
		t.Fatalf("total = %v, want 26.95", o.TotalAmount)
	}
	if len(o.Items) != 2 || o.Items[0].UnitPrice != 8.25 || o.Items[0].LineTotal != 24.75 || o.Items[0].GTIN != "111" {
		t.Fatalf("items: %+v", o.Items)
	}
	if o.Notes != "deliver to back door" {
		t.Fatalf("notes not trimmed: %q", o.Notes)
	}
	p, _ := repos.NewProductRepo(db).Get(ctx, ps[0].ID)
	if p.Inventory != 7 {
		t.Fatalf("inventory = %d, want 7", p.Inventory)
	}
}

func TestOrderInsufficientStockTakesNothing(t *testing.T) {
	db := memdb(t)
	ps := seedProducts(t, db, stocked("111", "Shampoo", 8.25, 10), stocked("222", "Soap", 2.20, 1))
	cust := seedCustomer(t, db, "shop@example.com")
	orders := repos.NewOrderRepo(db)
	svc := services.NewOrderService(orders, repos.NewCustomerRepo(db))
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.OrderInput{
		CustomerID: cust,
		Items: []domain.LineRequest{
			{ProductID: ps[0].ID, Quantity: 2},
			{ProductID: ps[1].ID, Quantity: 5},
		},
	})
	var se *domain.StockError
	if !errors.As(err, &se) || se.ProductID != ps[1].ID || se.Available != 1 {
		t.Fatalf("want stock error for soap, got %v", err)
	}
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatal("stock error should match ErrInsufficientStock")
	}
	p, _ := repos.NewProductRepo(db).Get(ctx, ps[0].ID)
	if p.Inventory != 10 {
		t.Fatalf("first line decremented to %d", p.Inventory)
	}
	if n, _ := orders.Count(ctx); n != 0 {
		t.Fatalf("%d orders written", n)
	}
}

func TestOrderDuplicateLinesShareStock(t *testing.T) {
	db := memdb(t)
	ps := seedProducts(t, db, stocked("111", "Shampoo", 8.25, 3))
	cust := seedCustomer(t, db, "shop@example.com")
	svc := services.NewOrderService(repos.NewOrderRepo(db), repos.NewCustomerRepo(db))

	_, err := svc.Create(context.Background(), domain.OrderInput{
		CustomerID: cust,
		Items: []domain.LineRequest{
			{ProductID: ps[0].ID, Quantity: 2},
			{ProductID: ps[0].ID, Quantity: 2},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("want insufficient stock, got %v", err)
	}
}

func TestOrderValidation(t *testing.T) {
	db := memdb(t)
	ps := seedProducts(t, db, stocked("111", "Shampoo", 8.25, 3))
	cust := seedCustomer(t, db, "shop@example.com")
	customers := repos.NewCustomerRepo(db)
	svc := services.NewOrderService(repos.NewOrderRepo(db), customers)
	ctx := context.Background()

	cases := []struct {
		name string
		in   domain.OrderInput
	}{
		{"no customer", domain.OrderInput{Items: []domain.LineRequest{{ProductID: ps[0].ID, Quantity: 1}}}},
		{"unknown customer", domain.OrderInput{CustomerID: 999, Items: []domain.LineRequest{{ProductID: ps[0].ID, Quantity: 1}}}},
		{"no items", domain.OrderInput{CustomerID: cust}},
		{"zero quantity", domain.OrderInput{CustomerID: cust, Items: []domain.LineRequest{{ProductID: ps[0].ID, Quantity: 0}}}},
		{"unknown product", domain.OrderInput{CustomerID: cust, Items: []domain.LineRequest{{ProductID: 999, Quantity: 1}}}},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, tc.in)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: want validation error, got %v", tc.name, err)
		}
	}

	if err := customers.SetStatus(ctx, cust, domain.CustomerInactive); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, domain.OrderInput{CustomerID: cust, Items: []domain.LineRequest{{ProductID: ps[0].ID, Quantity: 1}}})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("inactive customer: want validation error, got %v", err)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	db := memdb(t)
	ps := seedProducts(t, db, stocked("111", "Shampoo", 8.25, 10))
	cust := seedCustomer(t, db, "shop@example.com")
	svc := services.NewOrderService(repos.NewOrderRepo(db), repos.NewCustomerRepo(db))
	prods := repos.NewProductRepo(db)
	ctx := context.Background()

	o, err := svc.Create(ctx, domain.OrderInput{CustomerID: cust, Items: []domain.LineRequest{{ProductID: ps[0].ID, Quantity: 4}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, o.ID, domain.OrderDelivered); err == nil {
		t.Fatal("pending -> delivered should be rejected")
	}
	if o, err = svc.UpdateStatus(ctx, o.ID, domain.OrderConfirmed); err != nil || o.Status != domain.OrderConfirmed {
		t.Fatalf("confirm: %+v %v", o, err)
	}
	if o, err = svc.UpdateStatus(ctx, o.ID, domain.OrderCancelled); err != nil {
		t.Fatal(err)
	}
	p, _ := prods.Get(ctx, ps[0].ID)
	if p.Inventory != 10 {
		t.Fatalf("cancel did not restock: %d", p.Inventory)
	}
	if _, err := svc.UpdateStatus(ctx, o.ID, domain.OrderConfirmed); err == nil {
		t.Fatal("cancelled is terminal")
	}
	if _, err := svc.UpdateStatus(ctx, 999, domain.OrderConfirmed); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}
