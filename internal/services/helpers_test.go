package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
)

var t0 = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedProducts stores ps and returns them with their ids.
func seedProducts(t *testing.T, db *sqlx.DB, ps ...domain.Product) []domain.Product {
	t.Helper()
	r := repos.NewProductRepo(db)
	ctx := context.Background()
	if _, err := r.UpsertBatch(ctx, ps, t0); err != nil {
		t.Fatal(err)
	}
	out := make([]domain.Product, 0, len(ps))
	for _, p := range ps {
		got, err := r.GetByGTIN(ctx, p.GTIN)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, got)
	}
	return out
}

func stocked(gtin, name string, price float64, inv int) domain.Product {
	return domain.Product{
		GTIN: gtin, Name: name, Brand: "Dove", Category: "Body",
		BasePrice: price, SellingPrice: price, Inventory: inv, Active: true,
		LastUpdated: t0.Format(domain.TimeLayout),
	}
}

func seedCustomer(t *testing.T, db *sqlx.DB, email string) int64 {
	t.Helper()
	id, err := repos.NewCustomerRepo(db).Create(context.Background(), domain.Customer{
		Email: email, BusinessName: "Corner Shop", ContactName: "Sam",
		DiscountTier: "standard", Status: domain.CustomerActive,
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	return id
}
