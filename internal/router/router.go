// Package router assembles the HTTP routes of the API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/felipemaiocch/wenvest/internal/handlers"
	"github.com/felipemaiocch/wenvest/internal/middleware"
	"github.com/felipemaiocch/wenvest/internal/services"
)

// Services bundles the services the routes are served from.
type Services struct {
	Portfolio    services.PortfolioServicer
	Transaction  services.TransactionServicer
	PriceHistory services.PriceHistoryServicer
	Quote        services.QuoteServicer
	Summary      services.SummaryServicer
	Performance  services.PerformanceServicer
	Analytics    services.AnalyticsServicer
	Dividend     services.DividendServicer
	Snapshot     services.PortfolioSnapshotServicer
	Audit        services.AuditServicer
}

// New builds the Gin engine with middleware, swagger docs, the health check
// and the /api/v1 routes. Pipeline routes require pipelineKey.
func New(svc Services, pipelineKey string) *gin.Engine {
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transaction, svc.Audit)
	summaryHandler := handlers.NewSummaryHandler(svc.Summary, svc.Performance)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	assetHandler := handlers.NewAssetHandler(svc.Quote, svc.PriceHistory)
	dividendHandler := handlers.NewDividendHandler(svc.Dividend)
	snapshotHandler := handlers.NewPortfolioSnapshotHandler(svc.Snapshot)
	pipelineHandler := handlers.NewPipelineHandler(svc.PriceHistory, svc.Dividend, svc.Snapshot)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", handlers.Health)

	v1 := router.Group("/api/v1")

	portfolios := v1.Group("/portfolios")
	portfolios.POST("", portfolioHandler.CreatePortfolio)
	portfolios.GET("", portfolioHandler.GetPortfolios)
	portfolios.GET("/:id", portfolioHandler.GetPortfolioByID)
	portfolios.DELETE("/:id", portfolioHandler.DeletePortfolio)
	portfolios.POST("/:id/transactions", transactionHandler.CreateTransaction)
	portfolios.GET("/:id/transactions", transactionHandler.GetTransactions)
	portfolios.GET("/:id/summary", summaryHandler.GetSummary)
	portfolios.GET("/:id/performance", summaryHandler.GetPerformance)
	portfolios.GET("/:id/analytics/metrics", analyticsHandler.GetMetrics)
	portfolios.GET("/:id/analytics/drawdown", analyticsHandler.GetDrawdown)
	portfolios.GET("/:id/analytics/risk-return", analyticsHandler.GetRiskReturn)
	portfolios.GET("/:id/analytics/correlation", analyticsHandler.GetCorrelation)
	portfolios.GET("/:id/dividends", dividendHandler.GetDividends)
	portfolios.GET("/:id/dividends/estimated", dividendHandler.GetEstimatedDividends)
	portfolios.GET("/:id/snapshots", snapshotHandler.GetSnapshots)

	v1.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)

	assets := v1.Group("/assets")
	assets.GET("/search", assetHandler.SearchAssets)
	assets.GET("/:ticker/history", assetHandler.GetHistory)
	assets.GET("/:ticker/volatility", analyticsHandler.GetVolatility)

	v1.GET("/quote", assetHandler.GetQuotes)

	// Pipeline routes for external schedulers
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(pipelineKey))
	pipeline.POST("/backfill", pipelineHandler.Backfill)
	pipeline.POST("/update-prices", pipelineHandler.UpdatePrices)
	pipeline.POST("/dividends", pipelineHandler.SyncDividends)
	pipeline.POST("/snapshots", pipelineHandler.ComputeSnapshots)
	pipeline.GET("/status", pipelineHandler.Status)

	return router
}
