package handlers_test

import (
	"testing"

	"b2bcatalog/internal/catalog"
)

func TestSyncStartConflictAndStatus(t *testing.T) {
	src := &stubSource{
		rows: []catalog.RawProduct{
			{GTIN: "555", Name: "Hand Cream", Brand: "Nivea", Category: "Skin Care", Price: catalog.Amount{Text: "4.00"}, Inventory: "12"},
		},
		release: make(chan struct{}),
	}
	a := newTestApp(t, src, nil)

	code, body := a.do(t, "POST", "/api/sync/start", `{"max_pages":3}`)
	if code != 202 || body["success"] != true {
		t.Fatalf("start: %d %v", code, body)
	}
	code, body = a.do(t, "POST", "/api/sync/start", "")
	if code != 409 {
		t.Fatalf("second start: %d %v", code, body)
	}
	_, body = a.do(t, "GET", "/api/sync/status", "")
	if body["running"] != true {
		t.Fatalf("status while running: %v", body)
	}

	close(src.release)
	a.deps.SyncSvc.Wait()

	code, body = a.do(t, "GET", "/api/sync/status", "")
	if code != 200 || body["running"] != false {
		t.Fatalf("status after: %d %v", code, body)
	}
	last := body["last_sync"].(map[string]any)
	if last["status"] != "completed" || last["products_added"].(float64) != 1 {
		t.Fatalf("last sync: %v", last)
	}
	id := itoa(int(last["id"].(float64)))
	if code, _ := a.do(t, "GET", "/api/sync/runs/"+id, ""); code != 200 {
		t.Fatalf("run lookup: %d", code)
	}

	code, body = a.do(t, "GET", "/api/products/gtin/555", "")
	if code != 200 || body["selling_price"].(float64) != 4.40 {
		t.Fatalf("synced product: %d %v", code, body)
	}
}

func TestSyncRejectsBadBody(t *testing.T) {
	a := newTestApp(t, nil, nil)
	if code, _ := a.do(t, "POST", "/api/sync/start", `{"max_pages":-1}`); code != 400 {
		t.Fatalf("negative pages: %d", code)
	}
	if code, _ := a.do(t, "POST", "/api/sync/start", `{"max_pages":`); code != 400 {
		t.Fatalf("bad json: %d", code)
	}
}

func TestSyncTestEndpoint(t *testing.T) {
	a := newTestApp(t, nil, nil)
	code, body := a.do(t, "GET", "/api/sync/test", "")
	if code != 200 || body["connected"] != true {
		t.Fatalf("test: %d %v", code, body)
	}
}
