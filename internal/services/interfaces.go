package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipemaiocch/wenvest/internal/analytics"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
)

// MarketData is the market access the services need. *marketdata.Market
// satisfies it.
type MarketData interface {
	Quote(ctx context.Context, ticker string) (*marketdata.Quote, error)
	Quotes(ctx context.Context, tickers []string) []marketdata.Quote
	History(ctx context.Context, ticker string, days, minPoints int) ([]marketdata.Bar, error)
	Dividends(ctx context.Context, ticker string, days int) ([]marketdata.DividendEvent, error)
	Search(ctx context.Context, query string) ([]marketdata.SearchResult, error)
}

var _ MarketData = (*marketdata.Market)(nil)

// PortfolioServicer defines the contract for portfolio management.
type PortfolioServicer interface {
	CreatePortfolio(name, portfolioType, baseCurrency string) (*models.Portfolio, error)
	GetPortfolios(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	GetPortfolioByID(portfolioID string) (*models.Portfolio, error)
	DeletePortfolio(portfolioID string) error
}

// TransactionInput carries the fields of a new ledger entry.
type TransactionInput struct {
	Ticker   string
	Type     models.TransactionType
	Date     time.Time
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Origin   string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Ticker   *string
	Type     *models.TransactionType
	FromDate *time.Time
	ToDate   *time.Time
}

// TransactionServicer defines the contract for the portfolio ledger.
type TransactionServicer interface {
	AddTransaction(portfolioID string, input TransactionInput) (*models.Transaction, error)
	GetTransactions(portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(transactionID string) (*models.Transaction, error)
	GetLedger(portfolioID string) ([]models.Transaction, error)
	GetAllLedgers() (map[string][]models.Transaction, error)
	DeleteTransaction(transactionID string) error
	GetTickers(portfolioID string) ([]string, error)
	GetAllTickers() ([]string, error)
}

// BatchItem is the outcome of one ticker in a batch price update.
type BatchItem struct {
	Ticker string `json:"ticker"`
	Status string `json:"status"`
	Count  int    `json:"count,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes a batch price update.
type BatchResult struct {
	Total   int         `json:"total"`
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Results []BatchItem `json:"results"`
}

// PriceHistoryStatus reports how much history is stored.
type PriceHistoryStatus struct {
	Records int64 `json:"records"`
	Tickers int64 `json:"tickers"`
	Ready   bool  `json:"ready"`
}

// PriceHistoryServicer defines the contract for the local daily price store.
type PriceHistoryServicer interface {
	GetCloses(ctx context.Context, ticker string, days int) (analytics.Series, error)
	GetHistory(ctx context.Context, ticker string, days int) ([]models.PriceHistory, error)
	FetchAndStore(ctx context.Context, ticker string, days int) (int, error)
	UpdateAll(ctx context.Context, days int) (*BatchResult, error)
	LatestClose(ctx context.Context, ticker string, onOrBefore time.Time) (float64, bool, error)
	Status(ctx context.Context) (*PriceHistoryStatus, error)
}

// QuoteServicer defines the contract for live quotes and asset search.
type QuoteServicer interface {
	GetQuote(ctx context.Context, ticker string) (*marketdata.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) ([]marketdata.Quote, error)
	SearchAssets(ctx context.Context, query string) ([]marketdata.SearchResult, error)
}

// AssetSummary is one valued position of a portfolio summary.
type AssetSummary struct {
	Ticker        string     `json:"ticker"`
	Quantity      float64    `json:"quantity"`
	AveragePrice  float64    `json:"average_price"`
	CurrentPrice  float64    `json:"current_price"`
	CurrentValue  float64    `json:"current_value"`
	Cost          float64    `json:"cost"`
	Profit        float64    `json:"profit"`
	ProfitPct     float64    `json:"profit_pct"`
	Dividends     float64    `json:"dividends"`
	Type          string     `json:"type"`
	PriceSource   string     `json:"price_source"`
	Formatted     string     `json:"formatted_value"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	AllocationPct float64    `json:"allocation_pct"`
}

// AllocationSlice is the share of net worth held in one asset type.
type AllocationSlice struct {
	Type    string  `json:"type"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Count   int     `json:"count"`
}

// PortfolioSummary is the valued state of a portfolio.
type PortfolioSummary struct {
	PortfolioID     string            `json:"portfolio_id"`
	Currency        string            `json:"currency"`
	NetWorth        float64           `json:"net_worth"`
	Cost            float64           `json:"cost"`
	Profit          float64           `json:"profit"`
	VariationPct    float64           `json:"variation_pct"`
	Dividends       float64           `json:"dividends"`
	FormattedWorth  string            `json:"formatted_net_worth"`
	FormattedProfit string            `json:"formatted_profit"`
	Assets          []AssetSummary    `json:"assets"`
	Allocation      []AllocationSlice `json:"allocation"`
	LastUpdate      time.Time         `json:"last_update"`
}

// SummaryServicer defines the contract for portfolio valuation.
type SummaryServicer interface {
	GetPortfolioSummary(ctx context.Context, portfolioID, currency string) (*PortfolioSummary, error)
}

// PerformancePoint is one day of a portfolio performance series.
type PerformancePoint struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Invested  float64   `json:"invested"`
	ReturnPct float64   `json:"return_pct"`
}

// PerformanceServicer defines the contract for the daily performance series.
type PerformanceServicer interface {
	GetPortfolioPerformance(ctx context.Context, portfolioID string, days int) ([]PerformancePoint, error)
}

// PortfolioMetrics are the headline risk indicators of a portfolio.
type PortfolioMetrics struct {
	Sharpe     *float64 `json:"sharpe"`
	Beta       *float64 `json:"beta"`
	Volatility *float64 `json:"volatility"`
	Sortino    *float64 `json:"sortino"`
}

// AnalyticsServicer defines the contract for risk and performance analytics.
// Results are nil when there is not enough price history.
type AnalyticsServicer interface {
	CalculateVolatility(ctx context.Context, ticker string, days int) (*float64, error)
	CalculatePortfolioMetrics(ctx context.Context, portfolioID string) (*PortfolioMetrics, error)
	CalculateDrawdown(ctx context.Context, portfolioID string) (*analytics.Drawdown, error)
	CalculateRiskReturn(ctx context.Context, portfolioID string) ([]analytics.RiskReturnPoint, error)
	CalculateCorrelationMatrix(ctx context.Context, portfolioID string) (*analytics.Correlation, error)
}

// EstimatedDividend is a past dividend event scaled to the current position.
type EstimatedDividend struct {
	Ticker   string    `json:"ticker"`
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Quantity float64   `json:"quantity"`
	Total    float64   `json:"total"`
}

// DividendSyncResult summarizes a dividend sync run.
type DividendSyncResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// DividendServicer defines the contract for dividend tracking.
type DividendServicer interface {
	GetEstimatedDividends(ctx context.Context, portfolioID string) ([]EstimatedDividend, error)
	SyncDividends(ctx context.Context) (*DividendSyncResult, error)
	GetDividends(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error)
}

// PortfolioSnapshotServicer defines the contract for portfolio snapshot operations.
type PortfolioSnapshotServicer interface {
	ComputeAndRecordSnapshots(ctx context.Context, recordedAt time.Time) (int, error)
	GetSnapshots(portfolioID string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
