package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/felipemaiocch/wenvest/internal/config"
	"github.com/felipemaiocch/wenvest/internal/database"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Backfill error: %v", err)
	}
}

func run() error {
	days := flag.Int("days", services.BackfillDays, "days of history to fetch per ticker")
	benchmark := flag.Bool("benchmark", true, "also backfill the benchmark index")
	flag.Parse()

	if *days <= 0 {
		return fmt.Errorf("days must be positive, got %d", *days)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	market := marketdata.NewDefaultMarket(&http.Client{Timeout: cfg.HTTPTimeout}, marketdata.Settings{
		BrapiBaseURL:   cfg.BrapiBaseURL,
		BrapiToken:     cfg.BrapiToken,
		YahooChartURL:  cfg.YahooChartURL,
		YahooSearchURL: cfg.YahooSearchURL,
		CVMRegistryURL: cfg.CVMRegistryURL,
		QuoteTTL:       cfg.QuoteTTL,
		Concurrency:    cfg.FetchConcurrency,
	})

	db := dbManager.DB()
	transactionService := services.NewTransactionService(db, services.NewPortfolioService(db))
	priceHistoryService := services.NewPriceHistoryService(db, market, transactionService, cfg.HistoryCoverage, cfg.ProviderDelay)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Get()
	result, err := priceHistoryService.UpdateAll(ctx, *days)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	log.Infow("ledger backfill finished", "total", result.Total, "success", result.Success, "failed", result.Failed)

	if *benchmark && cfg.BenchmarkTicker != "" {
		count, err := priceHistoryService.FetchAndStore(ctx, cfg.BenchmarkTicker, *days)
		if err != nil {
			return fmt.Errorf("benchmark backfill failed: %w", err)
		}
		log.Infow("benchmark backfill finished", "ticker", cfg.BenchmarkTicker, "records", count)
	}
	return nil
}
