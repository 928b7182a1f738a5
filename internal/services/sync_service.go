package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"b2bcatalog/internal/catalog"
	"b2bcatalog/internal/config"
	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/repos"
	"b2bcatalog/internal/supplier"
)

const (
	maxSyncPages = 100
	syncType     = "supplier_full"
)

var (
	ErrSyncInProgress = errors.New("a sync run is already in progress")
	ErrEmptyExport    = errors.New("bulk export contained no usable products")
)

// CatalogSource is the supplier side of a sync. *supplier.Client implements it.
type CatalogSource interface {
	SearchPage(ctx context.Context, page int, p supplier.SearchParams) ([]catalog.RawProduct, error)
	DownloadCSV(ctx context.Context, p supplier.SearchParams) ([]byte, error)
	TestConnection(ctx context.Context) error
}

type SyncOptions struct {
	Strategy        string
	PerPage         int
	PageDelay       time.Duration
	DefaultMaxPages int
	MarkupPercent   float64
	CSVCharset      string
}

// SyncOptionsFrom maps the sync and supplier config onto engine options.
func SyncOptionsFrom(cfg config.Config) SyncOptions {
	return SyncOptions{
		Strategy:        cfg.Sync.Strategy,
		PerPage:         cfg.Sync.PerPage,
		PageDelay:       cfg.Sync.PageDelay,
		DefaultMaxPages: cfg.Sync.DefaultMaxPages,
		MarkupPercent:   cfg.Sync.MarkupPercent,
		CSVCharset:      cfg.Supplier.CSVCharset,
	}
}

type SyncRequest struct {
	MaxPages    int      `json:"max_pages,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	InStockOnly *bool    `json:"in_stock_only,omitempty"`
}

// SyncService runs fetch, transform and store as one tracked run. At most
// one run is active per process; a second trigger gets ErrSyncInProgress.
type SyncService struct {
	Source  CatalogSource
	Prods   *repos.ProductRepo
	Tracker *RunTracker
	Opts    SyncOptions
	Now     func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewSyncService(src CatalogSource, prods *repos.ProductRepo, tracker *RunTracker, opts SyncOptions) *SyncService {
	if opts.Strategy == "" {
		opts.Strategy = config.StrategyPaginated
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 100
	}
	if opts.DefaultMaxPages <= 0 {
		opts.DefaultMaxPages = 10
	}
	return &SyncService{Source: src, Prods: prods, Tracker: tracker, Opts: opts, Now: time.Now}
}

func (s *SyncService) Running() bool { return s.running.Load() }

// Run executes a sync in the caller's goroutine and returns the closed run.
// The error is the run's own failure, if any.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (domain.SyncRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return domain.SyncRun{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	req = s.normalize(req)
	run, err := s.Tracker.Start(ctx, syncType, s.Opts.Strategy, req)
	if err != nil {
		return domain.SyncRun{}, err
	}
	return s.execute(ctx, run, req)
}

// Start opens the run record synchronously and carries on in the
// background. ctx bounds the background work, not the caller's request.
func (s *SyncService) Start(ctx context.Context, req SyncRequest) (domain.SyncRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return domain.SyncRun{}, ErrSyncInProgress
	}
	req = s.normalize(req)
	run, err := s.Tracker.Start(ctx, syncType, s.Opts.Strategy, req)
	if err != nil {
		s.running.Store(false)
		return domain.SyncRun{}, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		_, _ = s.execute(ctx, run, req)
	}()
	return domain.SyncRun{
		ID: run.ID, SyncType: run.SyncType, Strategy: run.Strategy, Status: domain.SyncRunning,
		StartTime: run.Start.UTC().Format(domain.TimeLayout),
	}, nil
}

// Wait blocks until background runs have finished.
func (s *SyncService) Wait() { s.wg.Wait() }

func (s *SyncService) TestConnection(ctx context.Context) error {
	return s.Source.TestConnection(ctx)
}

func (s *SyncService) History(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	return s.Tracker.History(ctx, limit)
}

func (s *SyncService) GetRun(ctx context.Context, id int64) (domain.SyncRun, error) {
	return s.Tracker.Get(ctx, id)
}

func (s *SyncService) normalize(req SyncRequest) SyncRequest {
	if req.MaxPages <= 0 {
		req.MaxPages = s.Opts.DefaultMaxPages
	}
	if req.MaxPages > maxSyncPages {
		req.MaxPages = maxSyncPages
	}
	cats := req.Categories[:0:0]
	for _, c := range req.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	req.Categories = cats
	if req.InStockOnly == nil {
		yes := true
		req.InStockOnly = &yes
	}
	return req
}

// execute always closes run, including when the pipeline panics.
func (s *SyncService) execute(ctx context.Context, run *Run, req SyncRequest) (out domain.SyncRun, runErr error) {
	var tally Tally
	defer func() {
		if p := recover(); p != nil {
			runErr = fmt.Errorf("sync aborted: %v", p)
		}
		closed, err := s.Tracker.Finish(context.WithoutCancel(ctx), run, tally, runErr)
		out = closed
		if runErr == nil && err != nil {
			runErr = err
		}
	}()

	params := supplier.SearchParams{PerPage: s.Opts.PerPage, InStockOnly: *req.InStockOnly, Categories: req.Categories}
	var raws []catalog.RawProduct
	if s.Opts.Strategy == config.StrategyBulkCSV {
		raws, runErr = s.fetchBulk(ctx, params)
	} else {
		raws, runErr = s.fetchPages(ctx, req.MaxPages, params, &tally)
	}
	if runErr != nil {
		return
	}

	tally.Processed = len(raws)
	products, failures := catalog.TransformAll(raws, s.Opts.MarkupPercent, s.Now())
	for _, f := range failures {
		tally.Fail(f)
	}

	var res repos.UpsertResult
	if s.Opts.Strategy == config.StrategyBulkCSV {
		if len(products) == 0 {
			runErr = ErrEmptyExport
			return
		}
		res, runErr = s.Prods.ReplaceAll(ctx, products, s.Now())
	} else {
		res, runErr = s.Prods.UpsertBatch(ctx, products, s.Now())
	}
	if runErr != nil {
		runErr = fmt.Errorf("store products: %w", runErr)
		return
	}
	tally.Added, tally.Updated = res.Added, res.Updated
	for _, f := range res.Failures {
		tally.Fail(f)
	}
	return
}

// fetchPages walks the search pages until an empty page or maxPages. A page
// that fails for any reason other than authentication is skipped.
func (s *SyncService) fetchPages(ctx context.Context, maxPages int, params supplier.SearchParams, tally *Tally) ([]catalog.RawProduct, error) {
	limiter := rate.NewLimiter(rate.Every(s.Opts.PageDelay), 1)
	var all []catalog.RawProduct
	for page := 1; page <= maxPages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		rows, err := s.Source.SearchPage(ctx, page, params)
		if err != nil {
			if supplier.IsAuth(err) || ctx.Err() != nil {
				return nil, err
			}
			applog.Warn(nil, "sync.page.skip", err, map[string]any{"page": page})
			tally.Fail(err)
			continue
		}
		if len(rows) == 0 {
			break
		}
		all = append(all, rows...)
		applog.Info(nil, "sync.page.fetched", map[string]any{"page": page, "records": len(rows)})
	}
	return all, nil
}

// fetchBulk downloads and decodes the whole export. Any failure is final.
func (s *SyncService) fetchBulk(ctx context.Context, params supplier.SearchParams) ([]catalog.RawProduct, error) {
	body, err := s.Source.DownloadCSV(ctx, params)
	if err != nil {
		return nil, err
	}
	rows, err := catalog.DecodeCSV(bytes.NewReader(body), s.Opts.CSVCharset)
	if err != nil {
		return nil, err
	}
	applog.Info(nil, "sync.bulk.fetched", map[string]any{"bytes": len(body), "records": len(rows)})
	return rows, nil
}
