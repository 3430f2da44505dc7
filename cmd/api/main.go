package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felipemaiocch/wenvest/internal/config"
	"github.com/felipemaiocch/wenvest/internal/currency"
	"github.com/felipemaiocch/wenvest/internal/database"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/router"
	"github.com/felipemaiocch/wenvest/internal/scheduler"
	"github.com/felipemaiocch/wenvest/internal/services"
	"github.com/felipemaiocch/wenvest/internal/validator"

	_ "github.com/felipemaiocch/wenvest/internal/docs" // Import swagger docs
)

// @title           Wenvest API
// @version         1.0
// @description     Portfolio analytics for wealth managers: ledger, valuation, risk metrics and dividends.

// @host      localhost:8080
// @BasePath  /api/v1

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Market data
	httpClient := &http.Client{Timeout: appConfig.HTTPTimeout}
	market := marketdata.NewDefaultMarket(httpClient, marketdata.Settings{
		BrapiBaseURL:   appConfig.BrapiBaseURL,
		BrapiToken:     appConfig.BrapiToken,
		YahooChartURL:  appConfig.YahooChartURL,
		YahooSearchURL: appConfig.YahooSearchURL,
		CVMRegistryURL: appConfig.CVMRegistryURL,
		QuoteTTL:       appConfig.QuoteTTL,
		Concurrency:    appConfig.FetchConcurrency,
	})
	converter := currency.NewConverter(appConfig.BaseCurrency, appConfig.DisplayRates)

	// Initialize services
	db := dbManager.DB()
	portfolioService := services.NewPortfolioService(db)
	transactionService := services.NewTransactionService(db, portfolioService)
	priceHistoryService := services.NewPriceHistoryService(db, market, transactionService, appConfig.HistoryCoverage, appConfig.ProviderDelay)
	dividendService := services.NewDividendService(db, portfolioService, transactionService, market, appConfig.FetchConcurrency)
	snapshotService := services.NewPortfolioSnapshotService(db, portfolioService, transactionService)

	svc := router.Services{
		Portfolio:    portfolioService,
		Transaction:  transactionService,
		PriceHistory: priceHistoryService,
		Quote:        services.NewQuoteService(market),
		Summary:      services.NewSummaryService(db, portfolioService, transactionService, market, converter),
		Performance:  services.NewPerformanceService(portfolioService, transactionService, priceHistoryService, appConfig.FetchConcurrency),
		Analytics: services.NewAnalyticsService(portfolioService, transactionService, priceHistoryService,
			appConfig.BenchmarkTicker, appConfig.RiskFreeRate, appConfig.FetchConcurrency),
		Dividend: dividendService,
		Snapshot: snapshotService,
		Audit:    services.NewAuditService(db),
	}

	// Scheduled jobs
	jobs := scheduler.New()
	if err := scheduler.RegisterJobs(jobs, appConfig, priceHistoryService, dividendService, snapshotService); err != nil {
		return fmt.Errorf("failed to register scheduled jobs: %w", err)
	}
	if err := jobs.AddJob("0 */10 * * * *", scheduler.NewPruneCacheJob(market.Cache())); err != nil {
		return fmt.Errorf("failed to register cache job: %w", err)
	}
	jobs.Start()
	defer jobs.Stop()

	if appConfig.PipelineAPIKey == "" {
		log.Warn("PIPELINE_API_KEY is not set, pipeline endpoints are disabled")
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router.New(svc, appConfig.PipelineAPIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Wenvest server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
