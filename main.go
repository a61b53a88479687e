package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"options-core/internal/account"
	"options-core/internal/api"
	"options-core/internal/events"
	"options-core/internal/market"
	"options-core/internal/notify"
	"options-core/internal/reconciliation"
	"options-core/internal/settlement"
	"options-core/internal/trading"
	"options-core/pkg/config"
	"options-core/pkg/db"
	binance "options-core/pkg/market/binance"
	"options-core/pkg/platform"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("options core starting on port %s", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	symbols, err := config.LoadSymbols(cfg.SymbolsFile)
	if err != nil {
		log.Fatalf("load symbols: %v", err)
	}
	basePrices := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		basePrices[s.Symbol] = s.BasePrice
	}

	// Price feed
	rest := binance.NewClient(cfg.BinanceTestnet)
	stream := binance.NewStreamClient(cfg.BinanceTestnet)
	feed := market.NewFeed(rest, stream, bus, market.Config{
		MinDelta:      cfg.FeedMinDelta,
		PollInterval:  cfg.FeedPollInterval,
		MaxReconnects: cfg.FeedMaxReconnects,
		BasePrices:    basePrices,
	})
	defer feed.Close()

	// Keep one live subscription per catalogue symbol so ticks reach the
	// websocket clients through the bus.
	for _, s := range symbols {
		feed.Subscribe(s.Symbol, func(float64) {})
	}

	// Accounts and balances
	platformClient := platform.NewClient(cfg.PlatformBaseURL, cfg.PlatformToken)
	store := account.NewStore(cfg.HistoryCap)

	seedCtx, seedCancel := context.WithTimeout(ctx, 5*time.Second)
	if history, err := database.RecentResults(seedCtx, cfg.HistoryCap); err != nil {
		log.Printf("load history: %v", err)
	} else {
		store.SeedHistory(history)
	}
	seedCancel()

	resync := reconciliation.NewService(platformClient, store, bus, cfg.ResyncInterval)
	resync.Start(ctx)

	notifier := &notify.BusNotifier{Bus: bus}

	// Settlement and order placement
	engine := &settlement.Engine{
		Feed:     feed,
		Platform: platformClient,
		Store:    store,
		Resync:   resync,
		Journal:  database,
		Bus:      bus,
		Notifier: notifier,
	}
	placer := trading.NewPlacer(ctx, feed, store, platformClient, engine)
	placer.Journal = database
	placer.Bus = bus
	placer.Notifier = notifier

	// API
	server := api.NewServer(bus, feed, store, placer, resync, rest, symbols)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server: %v", err)
		}
	}()
	log.Printf("api listening on :%s", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
