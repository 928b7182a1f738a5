package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"b2bcatalog/internal/config"
	"b2bcatalog/internal/http/handlers"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/repos"
	"b2bcatalog/internal/supplier"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	logFile := applog.TeeToFile(cfg.LogFile)
	defer logFile.Close()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Supplier wiring. Tokens live in the database unless a file is configured.
	var store supplier.TokenStore = repos.NewTokenRepo(db, cfg.Supplier.Email)
	if cfg.Supplier.TokenFile != "" {
		store = supplier.NewFileTokenStore(cfg.Supplier.TokenFile)
	}
	hc := &http.Client{Timeout: cfg.Supplier.Timeout}
	tokens := supplier.NewTokenManager(supplier.Credentials{
		BaseURL:  cfg.Supplier.BaseURL,
		Email:    cfg.Supplier.Email,
		Password: cfg.Supplier.Password,
	}, hc, store, cfg.Supplier.TokenMargin, cfg.Supplier.TokenTTL)
	client := supplier.NewClient(cfg.Supplier.BaseURL, hc, tokens)

	base, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := handlers.NewDeps(base, db, cfg, client)
	if n, err := deps.Tracker.RecoverInterrupted(base); err != nil {
		log.Printf("[warn] could not close interrupted sync runs: %v", err)
	} else if n > 0 {
		log.Printf("[sync] marked %d interrupted run(s) as failed", n)
	}

	app := handlers.NewApp(cfg, deps)

	go func() {
		log.Printf("[server] listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("[server] stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[server] shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("[server] forced shutdown: %v", err)
	}
	// Stop any running sync and wait for it to record its outcome.
	cancel()
	deps.SyncSvc.Wait()
	log.Println("[server] bye")
}
