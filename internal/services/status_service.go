package services

import (
	"context"
	"time"

	"b2bcatalog/internal/domain"
	"b2bcatalog/internal/repos"
)

type Status struct {
	Products          int             `json:"products"`
	Customers         int             `json:"customers"`
	Orders            int             `json:"orders"`
	SupplierConnected bool            `json:"supplier_connected"`
	SupplierMessage   string          `json:"supplier_message"`
	SyncRunning       bool            `json:"sync_running"`
	LastSync          *domain.SyncRun `json:"last_sync"`
}

type StatusService struct {
	Prods     *repos.ProductRepo
	Customers *repos.CustomerRepo
	Orders    *repos.OrderRepo
	Sync      *SyncService
	// ProbeTimeout bounds the supplier connectivity check.
	ProbeTimeout time.Duration
}

func (s *StatusService) Status(ctx context.Context) (Status, error) {
	var st Status
	var err error
	if st.Products, err = s.Prods.Count(ctx); err != nil {
		return st, err
	}
	if st.Customers, err = s.Customers.Count(ctx); err != nil {
		return st, err
	}
	if st.Orders, err = s.Orders.Count(ctx); err != nil {
		return st, err
	}
	runs, err := s.Sync.History(ctx, 1)
	if err != nil {
		return st, err
	}
	if len(runs) > 0 {
		st.LastSync = &runs[0]
	}
	st.SyncRunning = s.Sync.Running()

	timeout := s.ProbeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Sync.TestConnection(pctx); err != nil {
		st.SupplierMessage = err.Error()
	} else {
		st.SupplierConnected = true
		st.SupplierMessage = "ok"
	}
	return st, nil
}
