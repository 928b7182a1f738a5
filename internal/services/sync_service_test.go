package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"b2bcatalog/internal/catalog"
	"b2bcatalog/internal/config"
	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
	"b2bcatalog/internal/services"
	"b2bcatalog/internal/supplier"
)

// fakeSource serves canned pages. A page with an error entry fails with it.
type fakeSource struct {
	mu      sync.Mutex
	pages   map[int][]catalog.RawProduct
	errs    map[int]error
	csv     []byte
	csvErr  error
	block   chan struct{}
	entered chan struct{}
	calls   []int
	at      []time.Time
}

func (f *fakeSource) SearchPage(ctx context.Context, page int, _ supplier.SearchParams) ([]catalog.RawProduct, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	f.at = append(f.at, time.Now())
	f.mu.Unlock()
	if f.block != nil {
		if f.entered != nil {
			select {
			case f.entered <- struct{}{}:
			default:
			}
		}
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeSource) DownloadCSV(context.Context, supplier.SearchParams) ([]byte, error) {
	return f.csv, f.csvErr
}

func (f *fakeSource) TestConnection(context.Context) error { return nil }

func raw(gtin, name, price, inv string) catalog.RawProduct {
	return catalog.RawProduct{
		GTIN: catalog.Text(gtin), Name: catalog.Text(name), Brand: "Dove", Category: "Body",
		Price: catalog.Amount{Text: price}, Inventory: catalog.Text(inv),
	}
}

func newSync(t *testing.T, src services.CatalogSource, strategy string) (*services.SyncService, *repos.ProductRepo) {
	t.Helper()
	db := memdb(t)
	prods := repos.NewProductRepo(db)
	tracker := services.NewRunTracker(repos.NewSyncRunRepo(db))
	svc := services.NewSyncService(src, prods, tracker, services.SyncOptions{
		Strategy: strategy, PerPage: 2, DefaultMaxPages: 10, MarkupPercent: 10, CSVCharset: "utf-8",
	})
	return svc, prods
}

func TestPaginatedSyncSkipsFailedPage(t *testing.T) {
	src := &fakeSource{
		pages: map[int][]catalog.RawProduct{
			1: {raw("111", "Shampoo", "7.50", "10"), raw("222", "Soap", "2,00", "0")},
			3: {raw("333", "Lotion", "6.55", "4")},
		},
		errs: map[int]error{2: &supplier.TransientFetchError{Page: 2, Status: 502}},
	}
	svc, prods := newSync(t, src, config.StrategyPaginated)
	ctx := context.Background()

	run, err := svc.Run(ctx, services.SyncRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.SyncCompletedWithErrors {
		t.Fatalf("status = %s, want %s", run.Status, domain.SyncCompletedWithErrors)
	}
	if run.Processed != 3 || run.Added != 3 || run.Errors != 1 {
		t.Fatalf("counts: %+v", run)
	}
	if len(src.calls) != 4 {
		t.Fatalf("expected pages 1-4 to be requested, got %v", src.calls)
	}
	p, err := prods.GetByGTIN(ctx, "111")
	if err != nil {
		t.Fatal(err)
	}
	if p.SellingPrice != 8.25 {
		t.Fatalf("selling price = %v, want 8.25", p.SellingPrice)
	}
}

func TestPaginatedSyncPacesPages(t *testing.T) {
	const delay = 40 * time.Millisecond
	src := &fakeSource{pages: map[int][]catalog.RawProduct{}}
	for i := 1; i <= 3; i++ {
		src.pages[i] = []catalog.RawProduct{raw(fmt.Sprintf("%d00", i), "P", "1", "1")}
	}
	svc, _ := newSync(t, src, config.StrategyPaginated)
	svc.Opts.PageDelay = delay

	start := time.Now()
	run, err := svc.Run(context.Background(), services.SyncRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if run.Added != 3 || len(src.at) != 4 {
		t.Fatalf("run=%+v calls=%v", run, src.calls)
	}
	if elapsed := time.Since(start); elapsed < 3*delay {
		t.Fatalf("4 page requests took %v, want at least %v", elapsed, 3*delay)
	}
	for i := 1; i < len(src.at); i++ {
		if gap := src.at[i].Sub(src.at[i-1]); gap < delay-5*time.Millisecond {
			t.Fatalf("gap before page %d = %v, want about %v", i+1, gap, delay)
		}
	}
}

func TestPaginatedSyncStopsAtMaxPages(t *testing.T) {
	src := &fakeSource{pages: map[int][]catalog.RawProduct{}}
	for i := 1; i <= 5; i++ {
		src.pages[i] = []catalog.RawProduct{raw(fmt.Sprintf("%d00", i), "P", "1", "1")}
	}
	svc, _ := newSync(t, src, config.StrategyPaginated)

	run, err := svc.Run(context.Background(), services.SyncRequest{MaxPages: 2})
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.SyncCompleted || run.Added != 2 || len(src.calls) != 2 {
		t.Fatalf("run=%+v calls=%v", run, src.calls)
	}
}

func TestAuthFailureFailsRun(t *testing.T) {
	src := &fakeSource{
		pages: map[int][]catalog.RawProduct{1: {raw("111", "Shampoo", "7.50", "10")}},
		errs:  map[int]error{2: &supplier.AuthenticationError{Op: "request", Status: 401}},
	}
	svc, prods := newSync(t, src, config.StrategyPaginated)
	ctx := context.Background()

	run, err := svc.Run(ctx, services.SyncRequest{})
	if !supplier.IsAuth(err) {
		t.Fatalf("want auth error, got %v", err)
	}
	if run.Status != domain.SyncFailed || run.ErrorSummary == "" {
		t.Fatalf("run: %+v", run)
	}
	if n, _ := prods.Count(ctx); n != 0 {
		t.Fatalf("failed run stored %d products", n)
	}
}

const export = "GTIN;Name;Brand;Category;Lowest price inc. shipping;Total inventory of all offers\n" +
	"111;Shampoo;H&S;Hair Care;7,50;10\n" +
	"222;Soap;Dove;Body;2,00;0\n" +
	";No id;Dove;Body;1,00;1\n"

func TestBulkSyncReplacesCatalog(t *testing.T) {
	src := &fakeSource{csv: []byte(export)}
	svc, prods := newSync(t, src, config.StrategyBulkCSV)
	ctx := context.Background()

	first, err := svc.Run(ctx, services.SyncRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != domain.SyncCompletedWithErrors || first.Processed != 3 || first.Added != 2 || first.Errors != 1 {
		t.Fatalf("first run: %+v", first)
	}

	second, err := svc.Run(ctx, services.SyncRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Added != 0 || second.Updated != 2 {
		t.Fatalf("second run: %+v", second)
	}
	if n, _ := prods.Count(ctx); n != 2 {
		t.Fatalf("want 2 products, got %d", n)
	}
}

func TestBulkSyncEmptyExportKeepsCatalog(t *testing.T) {
	src := &fakeSource{csv: []byte(export)}
	svc, prods := newSync(t, src, config.StrategyBulkCSV)
	ctx := context.Background()
	if _, err := svc.Run(ctx, services.SyncRequest{}); err != nil {
		t.Fatal(err)
	}

	src.csv = []byte("GTIN;Name\n")
	run, err := svc.Run(ctx, services.SyncRequest{})
	if !errors.Is(err, services.ErrEmptyExport) {
		t.Fatalf("want ErrEmptyExport, got %v", err)
	}
	if run.Status != domain.SyncFailed {
		t.Fatalf("status = %s", run.Status)
	}
	if n, _ := prods.Count(ctx); n != 2 {
		t.Fatalf("catalog wiped: %d products left", n)
	}
}

func TestBulkDownloadFailureFailsRun(t *testing.T) {
	src := &fakeSource{csvErr: errors.New("bulk download: status 503")}
	svc, _ := newSync(t, src, config.StrategyBulkCSV)
	run, err := svc.Run(context.Background(), services.SyncRequest{})
	if err == nil || run.Status != domain.SyncFailed {
		t.Fatalf("want failed run, got %+v (%v)", run, err)
	}
}

func TestConcurrentTriggerIsRejected(t *testing.T) {
	src := &fakeSource{
		pages:   map[int][]catalog.RawProduct{1: {raw("111", "Shampoo", "7.50", "10")}},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	svc, _ := newSync(t, src, config.StrategyPaginated)
	ctx := context.Background()

	started, err := svc.Start(ctx, services.SyncRequest{MaxPages: 1})
	if err != nil {
		t.Fatal(err)
	}
	if started.Status != domain.SyncRunning || started.ID == 0 {
		t.Fatalf("started: %+v", started)
	}
	<-src.entered

	if _, err := svc.Run(ctx, services.SyncRequest{}); !errors.Is(err, services.ErrSyncInProgress) {
		t.Fatalf("want ErrSyncInProgress, got %v", err)
	}
	if _, err := svc.Start(ctx, services.SyncRequest{}); !errors.Is(err, services.ErrSyncInProgress) {
		t.Fatalf("want ErrSyncInProgress, got %v", err)
	}
	if !svc.Running() {
		t.Fatal("expected Running while blocked")
	}

	close(src.block)
	svc.Wait()
	if svc.Running() {
		t.Fatal("still running after Wait")
	}
	run, err := svc.GetRun(ctx, started.ID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.SyncCompleted || run.Added != 1 {
		t.Fatalf("background run: %+v", run)
	}
}

func TestCancelledSyncIsRecorded(t *testing.T) {
	src := &fakeSource{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc, _ := newSync(t, src, config.StrategyPaginated)
	ctx, cancel := context.WithCancel(context.Background())

	started, err := svc.Start(ctx, services.SyncRequest{})
	if err != nil {
		t.Fatal(err)
	}
	<-src.entered
	cancel()
	svc.Wait()

	run, err := svc.GetRun(context.Background(), started.ID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.SyncFailed || run.EndTime == "" {
		t.Fatalf("cancelled run not closed: %+v", run)
	}
}

func TestRunTimesNeverGoBackwards(t *testing.T) {
	db := memdb(t)
	tracker := services.NewRunTracker(repos.NewSyncRunRepo(db))
	times := []time.Time{t0, t0.Add(-time.Second)}
	tracker.Now = func() time.Time {
		now := times[0]
		times = times[1:]
		return now
	}
	ctx := context.Background()
	run, err := tracker.Start(ctx, "supplier_full", config.StrategyPaginated, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := tracker.Finish(ctx, run, services.Tally{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.EndTime < out.StartTime || out.DurationSeconds != 0 {
		t.Fatalf("times out of order: %+v", out)
	}
}

func TestFinishTwiceIsRejected(t *testing.T) {
	db := memdb(t)
	tracker := services.NewRunTracker(repos.NewSyncRunRepo(db))
	ctx := context.Background()
	run, err := tracker.Start(ctx, "supplier_full", config.StrategyPaginated, nil)
	if err != nil {
		t.Fatal(err)
	}
	var tally services.Tally
	tally.Processed = 4
	tally.Fail(errors.New("record 9: missing gtin"))
	first, err := tracker.Finish(ctx, run, tally, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != domain.SyncCompletedWithErrors || first.Errors != 1 {
		t.Fatalf("first finish: %+v", first)
	}
	if _, err := tracker.Finish(ctx, run, services.Tally{}, errors.New("late")); !errors.Is(err, services.ErrRunClosed) {
		t.Fatalf("want ErrRunClosed, got %v", err)
	}
	stored, _ := tracker.Get(ctx, run.ID)
	if stored.Status != domain.SyncCompletedWithErrors {
		t.Fatalf("closed run rewritten: %+v", stored)
	}
}

func TestRecoverInterruptedClosesRunningRows(t *testing.T) {
	db := memdb(t)
	tracker := services.NewRunTracker(repos.NewSyncRunRepo(db))
	tracker.Now = func() time.Time { return t0 }
	ctx := context.Background()
	run, err := tracker.Start(ctx, "supplier_full", config.StrategyBulkCSV, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := tracker.RecoverInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("recovered %d (%v)", n, err)
	}
	got, _ := tracker.Get(ctx, run.ID)
	if got.Status != domain.SyncFailed || got.EndTime == "" {
		t.Fatalf("run not failed: %+v", got)
	}
}
