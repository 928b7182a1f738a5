package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
)

var t0 = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func product(gtin, name, brand string, base, sell float64, inv int) domain.Product {
	return domain.Product{
		GTIN: gtin, Name: name, Brand: brand, Category: "Hair Care",
		BasePrice: base, SellingPrice: sell, Inventory: inv, Active: true,
		LastUpdated: t0.Format(domain.TimeLayout),
	}
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	ctx := context.Background()
	batch := []domain.Product{
		product("111", "Shampoo", "Head & Shoulders", 7.50, 8.25, 10),
		product("222", "Soap", "Dove", 2.00, 2.20, 0),
	}

	res, err := r.UpsertBatch(ctx, batch, t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 2 || res.Updated != 0 || res.Errors() != 0 {
		t.Fatalf("first pass: %+v", res)
	}
	first, _ := r.GetByGTIN(ctx, "111")

	res, err = r.UpsertBatch(ctx, batch, t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Updated != 2 {
		t.Fatalf("second pass: %+v", res)
	}
	n, _ := r.Count(ctx)
	if n != 2 {
		t.Fatalf("want 2 rows, got %d", n)
	}
	second, _ := r.GetByGTIN(ctx, "111")
	if first != second {
		t.Fatalf("row changed on identical upsert:\n%+v\n%+v", first, second)
	}
}

func TestUpsertBatchOverwritesFields(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	ctx := context.Background()
	if _, err := r.UpsertBatch(ctx, []domain.Product{product("111", "Shampoo", "H&S", 7.50, 8.25, 10)}, t0); err != nil {
		t.Fatal(err)
	}
	changed := product("111", "Shampoo XL", "H&S", 9.00, 9.90, 3)
	if _, err := r.UpsertBatch(ctx, []domain.Product{changed}, t0); err != nil {
		t.Fatal(err)
	}
	p, err := r.GetByGTIN(ctx, "111")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Shampoo XL" || p.BasePrice != 9.00 || p.SellingPrice != 9.90 || p.Inventory != 3 {
		t.Fatalf("fields not overwritten: %+v", p)
	}
}

func TestReplaceAllKeepsIDsAndCounts(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	ctx := context.Background()
	batch := []domain.Product{
		product("111", "Shampoo", "H&S", 7.50, 8.25, 10),
		product("222", "Soap", "Dove", 2.00, 2.20, 4),
	}
	if _, err := r.ReplaceAll(ctx, batch, t0); err != nil {
		t.Fatal(err)
	}
	before, _ := r.GetByGTIN(ctx, "222")

	res, err := r.ReplaceAll(ctx, batch[1:], t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Updated != 1 {
		t.Fatalf("replace counts: %+v", res)
	}
	if _, err := r.GetByGTIN(ctx, "111"); err != domain.ErrNotFound {
		t.Fatalf("111 should be gone after full replace, got %v", err)
	}
	after, _ := r.GetByGTIN(ctx, "222")
	if after.ID != before.ID {
		t.Fatalf("id changed across replace: %d -> %d", before.ID, after.ID)
	}
}

func TestBrandSummaryRebuilt(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	ctx := context.Background()
	if _, err := r.UpsertBatch(ctx, []domain.Product{
		product("1", "A", "Dove", 1, 1.1, 5),
		product("2", "B", "Dove", 1, 1.1, 0),
		product("3", "C", "Nivea", 1, 1.1, 2),
	}, t0); err != nil {
		t.Fatal(err)
	}
	brands, err := r.Brands(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(brands) != 2 || brands[0].Brand != "Dove" || brands[0].ProductCount != 2 || brands[0].InStockCount != 1 {
		t.Fatalf("unexpected summary: %+v", brands)
	}

	if _, err := r.ReplaceAll(ctx, []domain.Product{product("3", "C", "Nivea", 1, 1.1, 2)}, t0); err != nil {
		t.Fatal(err)
	}
	brands, _ = r.Brands(ctx)
	if len(brands) != 1 || brands[0].Brand != "Nivea" {
		t.Fatalf("summary not rebuilt: %+v", brands)
	}
}

func TestListFilters(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	ctx := context.Background()
	soap := product("2", "Body Soap", "Dove", 2, 2.20, 0)
	soap.Category = "Body"
	if _, err := r.UpsertBatch(ctx, []domain.Product{
		product("1", "Anti Dandruff Shampoo", "Head & Shoulders", 7.5, 8.25, 10),
		soap,
		product("3", "Conditioner", "Dove", 5, 5.50, 3),
	}, t0); err != nil {
		t.Fatal(err)
	}
	minP, maxP := 3.0, 6.0
	cases := []struct {
		name string
		f    domain.ProductFilter
		want []string
	}{
		{"all sorted by name", domain.ProductFilter{}, []string{"Anti Dandruff Shampoo", "Body Soap", "Conditioner"}},
		{"search brand", domain.ProductFilter{Search: "dove"}, []string{"Body Soap", "Conditioner"}},
		{"search category", domain.ProductFilter{Search: "hair"}, []string{"Anti Dandruff Shampoo", "Conditioner"}},
		{"category", domain.ProductFilter{Category: "Body"}, []string{"Body Soap"}},
		{"brand", domain.ProductFilter{Brand: "Dove", InStockOnly: true}, []string{"Conditioner"}},
		{"price range", domain.ProductFilter{MinPrice: &minP, MaxPrice: &maxP}, []string{"Conditioner"}},
	}
	for _, tc := range cases {
		tc.f.Page, tc.f.PerPage = 1, 50
		got, total, err := r.List(ctx, tc.f)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if total != len(tc.want) || len(got) != len(tc.want) {
			t.Fatalf("%s: want %v, got %d rows (total %d)", tc.name, tc.want, len(got), total)
		}
		for i, p := range got {
			if p.Name != tc.want[i] {
				t.Fatalf("%s: row %d = %s, want %s", tc.name, i, p.Name, tc.want[i])
			}
		}
	}

	page2, total, err := r.List(ctx, domain.ProductFilter{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page2) != 1 || page2[0].Name != "Conditioner" {
		t.Fatalf("pagination: total=%d rows=%+v", total, page2)
	}
}
