package catalog_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"b2bcatalog/internal/catalog"

	"golang.org/x/text/encoding/charmap"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRawProductAcceptsMixedJSON(t *testing.T) {
	body := `{"gtin": 1234567890123, "name": "Shampoo", "price": "7,50", "inventory": 100, "brand": null}`
	var raw catalog.RawProduct
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatal(err)
	}
	if raw.GTIN != "1234567890123" || raw.Inventory != "100" || raw.Brand != "" {
		t.Fatalf("unexpected raw: %+v", raw)
	}
	p, err := catalog.Transform(raw, 10, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if p.BasePrice != 7.50 || p.SellingPrice != 8.25 || p.Inventory != 100 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if p.LastUpdated != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("timestamp = %s", p.LastUpdated)
	}
}

func TestJSONNumberPricesAreExact(t *testing.T) {
	cases := []struct {
		body       string
		base, sell float64
	}{
		{`{"gtin":"1","price":12.345}`, 12.345, 13.58},
		{`{"gtin":"2","price":1e3}`, 1000, 1100},
		{`{"gtin":"3","price":"0.125"}`, 0.125, 0.14},
		{`{"gtin":"4","price":"1.234"}`, 1234, 1357.4},
		{`{"gtin":"5","price":-3}`, 0, 0},
	}
	for _, tc := range cases {
		var raw catalog.RawProduct
		if err := json.Unmarshal([]byte(tc.body), &raw); err != nil {
			t.Fatalf("%s: %v", tc.body, err)
		}
		p, err := catalog.Transform(raw, 10, fixedNow)
		if err != nil {
			t.Fatalf("%s: %v", tc.body, err)
		}
		if p.BasePrice != tc.base || p.SellingPrice != tc.sell {
			t.Errorf("%s: base=%v selling=%v, want %v and %v", tc.body, p.BasePrice, p.SellingPrice, tc.base, tc.sell)
		}
	}
}

func TestTransformRequiresGTIN(t *testing.T) {
	_, err := catalog.Transform(catalog.RawProduct{Name: "No id"}, 10, fixedNow)
	if !errors.Is(err, catalog.ErrMissingGTIN) {
		t.Fatalf("want ErrMissingGTIN, got %v", err)
	}
}

func TestTransformDefaultsName(t *testing.T) {
	p, err := catalog.Transform(catalog.RawProduct{GTIN: "42", Price: catalog.Amount{Text: "abc"}, Inventory: "-1"}, 10, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "42" || p.BasePrice != 0 || p.Inventory != 0 {
		t.Fatalf("unexpected coercion: %+v", p)
	}
}

func TestTransformAllSkipsAndDedups(t *testing.T) {
	raws := []catalog.RawProduct{
		{GTIN: "1", Name: "first", Price: catalog.Amount{Text: "1"}},
		{Name: "missing"},
		{GTIN: "2", Name: "two", Price: catalog.Amount{Text: "2"}},
		{GTIN: "1", Name: "first again", Price: catalog.Amount{Text: "3"}},
	}
	out, errs := catalog.TransformAll(raws, 10, fixedNow)
	if len(errs) != 1 {
		t.Fatalf("want 1 error, got %v", errs)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 products, got %d", len(out))
	}
	if out[0].Name != "first again" || out[0].SellingPrice != 3.3 {
		t.Fatalf("last occurrence should win: %+v", out[0])
	}
}

func TestDecodeCSV(t *testing.T) {
	in := "GTIN;Name;Brand;Category;€ Lowest Price inc. shipping;Total Inventory of All Offers\n" +
		"1234567890123;Shampoo;Head & Shoulders;Hair Care;1.234,50€;12\n" +
		"9876543210987;Soap;Dove;Body;2,99;x\n"
	rows, err := catalog.DecodeCSV(strings.NewReader(in), "utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	p, err := catalog.Transform(rows[0], 10, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if p.BasePrice != 1234.50 || p.Inventory != 12 || p.Brand != "Head & Shoulders" {
		t.Fatalf("unexpected product: %+v", p)
	}
	q, _ := catalog.Transform(rows[1], 10, fixedNow)
	if q.BasePrice != 2.99 || q.Inventory != 0 {
		t.Fatalf("unexpected product: %+v", q)
	}
}

func TestDecodeCSVCharset(t *testing.T) {
	utf := "gtin,name,price\n111,Crème,5\n"
	enc, err := charmap.Windows1252.NewEncoder().String(utf)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := catalog.DecodeCSV(strings.NewReader(enc), "windows-1252")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "Crème" {
		t.Fatalf("decoded rows: %+v", rows)
	}
}

func TestDecodeCSVNeedsGTIN(t *testing.T) {
	_, err := catalog.DecodeCSV(strings.NewReader("name,price\nx,1\n"), "")
	if !errors.Is(err, catalog.ErrNoGTINColumn) {
		t.Fatalf("want ErrNoGTINColumn, got %v", err)
	}
	if _, err := catalog.DecodeCSV(strings.NewReader("gtin\n"), "klingon"); err == nil {
		t.Fatal("want charset error")
	}
}
