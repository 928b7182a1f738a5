package handlers

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/config"
	"b2bcatalog/internal/repos"
	"b2bcatalog/internal/services"
)

type Deps struct {
	Tracker *services.RunTracker
	SyncSvc *services.SyncService

	CatalogHandler   *CatalogHandler
	CustomerHandler  *CustomerHandler
	OrderHandler     *OrderHandler
	QuoteHandler     *QuoteHandler
	SyncHandler      *SyncHandler
	StatusHandler    *StatusHandler
	DashboardHandler *DashboardHandler
}

// NewDeps wires repos and services over db. base bounds background sync runs.
func NewDeps(base context.Context, db *sqlx.DB, cfg config.Config, src services.CatalogSource) *Deps {
	prodRepo := repos.NewProductRepo(db)
	custRepo := repos.NewCustomerRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	quoteRepo := repos.NewQuoteRepo(db)
	runRepo := repos.NewSyncRunRepo(db)

	catalogSvc := services.NewCatalogService(prodRepo, cfg.Sync.MarkupPercent)
	custSvc := services.NewCustomerService(custRepo)
	orderSvc := services.NewOrderService(orderRepo, custRepo)
	quoteSvc := services.NewQuoteService(quoteRepo, prodRepo, custRepo)
	tracker := services.NewRunTracker(runRepo)
	syncSvc := services.NewSyncService(src, prodRepo, tracker, services.SyncOptionsFrom(cfg))
	statusSvc := &services.StatusService{
		Prods: prodRepo, Customers: custRepo, Orders: orderRepo, Sync: syncSvc,
		ProbeTimeout: 10 * time.Second,
	}

	return &Deps{
		Tracker:          tracker,
		SyncSvc:          syncSvc,
		CatalogHandler:   &CatalogHandler{Catalog: catalogSvc},
		CustomerHandler:  &CustomerHandler{Customers: custSvc},
		OrderHandler:     &OrderHandler{Orders: orderSvc},
		QuoteHandler:     &QuoteHandler{Quotes: quoteSvc},
		SyncHandler:      &SyncHandler{Sync: syncSvc, Base: base},
		StatusHandler:    &StatusHandler{DB: db, Status: statusSvc, Debug: cfg.Debug},
		DashboardHandler: &DashboardHandler{Catalog: catalogSvc, Sync: syncSvc},
	}
}
