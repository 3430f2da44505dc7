package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/felipemaiocch/wenvest/internal/analytics"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
	"github.com/felipemaiocch/wenvest/internal/services"
	"github.com/felipemaiocch/wenvest/internal/validator"
)

const (
	testPortfolioID   = "01923f0a-6b1c-7d2e-8f3a-4b5c6d7e8f90"
	testTransactionID = "01923f0a-9a00-7b11-8c22-3d4e5f607182"
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- mock services ---

type auditEntry struct {
	action       string
	resourceType string
	resourceID   string
}

type mockAuditService struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *mockAuditService) Log(action, resourceType, resourceID, _ string, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{action: action, resourceType: resourceType, resourceID: resourceID})
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.action)
	}
	return out
}

type mockPortfolioService struct {
	createPortfolioFn  func(name, portfolioType, baseCurrency string) (*models.Portfolio, error)
	getPortfoliosFn    func(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	getPortfolioByIDFn func(portfolioID string) (*models.Portfolio, error)
	deletePortfolioFn  func(portfolioID string) error
}

func (m *mockPortfolioService) CreatePortfolio(name, portfolioType, baseCurrency string) (*models.Portfolio, error) {
	if m.createPortfolioFn != nil {
		return m.createPortfolioFn(name, portfolioType, baseCurrency)
	}
	return &models.Portfolio{}, nil
}

func (m *mockPortfolioService) GetPortfolios(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	if m.getPortfoliosFn != nil {
		return m.getPortfoliosFn(page)
	}
	resp := pagination.NewPageResponse([]models.Portfolio{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockPortfolioService) GetPortfolioByID(portfolioID string) (*models.Portfolio, error) {
	if m.getPortfolioByIDFn != nil {
		return m.getPortfolioByIDFn(portfolioID)
	}
	return &models.Portfolio{Base: models.Base{ID: portfolioID}}, nil
}

func (m *mockPortfolioService) DeletePortfolio(portfolioID string) error {
	if m.deletePortfolioFn != nil {
		return m.deletePortfolioFn(portfolioID)
	}
	return nil
}

var _ services.PortfolioServicer = (*mockPortfolioService)(nil)

type mockTransactionService struct {
	addTransactionFn     func(portfolioID string, input services.TransactionInput) (*models.Transaction, error)
	getTransactionsFn    func(portfolioID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn func(transactionID string) (*models.Transaction, error)
	deleteTransactionFn  func(transactionID string) error
}

func (m *mockTransactionService) AddTransaction(portfolioID string, input services.TransactionInput) (*models.Transaction, error) {
	if m.addTransactionFn != nil {
		return m.addTransactionFn(portfolioID, input)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactions(portfolioID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getTransactionsFn != nil {
		return m.getTransactionsFn(portfolioID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetLedger(string) ([]models.Transaction, error) { return nil, nil }

func (m *mockTransactionService) GetAllLedgers() (map[string][]models.Transaction, error) {
	return map[string][]models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(transactionID)
	}
	return nil
}

func (m *mockTransactionService) GetTickers(string) ([]string, error) { return nil, nil }

func (m *mockTransactionService) GetAllTickers() ([]string, error) { return nil, nil }

var _ services.TransactionServicer = (*mockTransactionService)(nil)

type mockSummaryService struct {
	getPortfolioSummaryFn func(ctx context.Context, portfolioID, currency string) (*services.PortfolioSummary, error)
}

func (m *mockSummaryService) GetPortfolioSummary(ctx context.Context, portfolioID, currency string) (*services.PortfolioSummary, error) {
	if m.getPortfolioSummaryFn != nil {
		return m.getPortfolioSummaryFn(ctx, portfolioID, currency)
	}
	return &services.PortfolioSummary{PortfolioID: portfolioID}, nil
}

var _ services.SummaryServicer = (*mockSummaryService)(nil)

type mockPerformanceService struct {
	getPortfolioPerformanceFn func(ctx context.Context, portfolioID string, days int) ([]services.PerformancePoint, error)
}

func (m *mockPerformanceService) GetPortfolioPerformance(ctx context.Context, portfolioID string, days int) ([]services.PerformancePoint, error) {
	if m.getPortfolioPerformanceFn != nil {
		return m.getPortfolioPerformanceFn(ctx, portfolioID, days)
	}
	return []services.PerformancePoint{}, nil
}

var _ services.PerformanceServicer = (*mockPerformanceService)(nil)

type mockAnalyticsService struct {
	calculateVolatilityFn        func(ctx context.Context, ticker string, days int) (*float64, error)
	calculatePortfolioMetricsFn  func(ctx context.Context, portfolioID string) (*services.PortfolioMetrics, error)
	calculateDrawdownFn          func(ctx context.Context, portfolioID string) (*analytics.Drawdown, error)
	calculateRiskReturnFn        func(ctx context.Context, portfolioID string) ([]analytics.RiskReturnPoint, error)
	calculateCorrelationMatrixFn func(ctx context.Context, portfolioID string) (*analytics.Correlation, error)
}

func (m *mockAnalyticsService) CalculateVolatility(ctx context.Context, ticker string, days int) (*float64, error) {
	if m.calculateVolatilityFn != nil {
		return m.calculateVolatilityFn(ctx, ticker, days)
	}
	return nil, nil
}

func (m *mockAnalyticsService) CalculatePortfolioMetrics(ctx context.Context, portfolioID string) (*services.PortfolioMetrics, error) {
	if m.calculatePortfolioMetricsFn != nil {
		return m.calculatePortfolioMetricsFn(ctx, portfolioID)
	}
	return nil, nil
}

func (m *mockAnalyticsService) CalculateDrawdown(ctx context.Context, portfolioID string) (*analytics.Drawdown, error) {
	if m.calculateDrawdownFn != nil {
		return m.calculateDrawdownFn(ctx, portfolioID)
	}
	return nil, nil
}

func (m *mockAnalyticsService) CalculateRiskReturn(ctx context.Context, portfolioID string) ([]analytics.RiskReturnPoint, error) {
	if m.calculateRiskReturnFn != nil {
		return m.calculateRiskReturnFn(ctx, portfolioID)
	}
	return nil, nil
}

func (m *mockAnalyticsService) CalculateCorrelationMatrix(ctx context.Context, portfolioID string) (*analytics.Correlation, error) {
	if m.calculateCorrelationMatrixFn != nil {
		return m.calculateCorrelationMatrixFn(ctx, portfolioID)
	}
	return nil, nil
}

var _ services.AnalyticsServicer = (*mockAnalyticsService)(nil)

type mockQuoteService struct {
	getQuoteFn     func(ctx context.Context, ticker string) (*marketdata.Quote, error)
	getQuotesFn    func(ctx context.Context, tickers []string) ([]marketdata.Quote, error)
	searchAssetsFn func(ctx context.Context, query string) ([]marketdata.SearchResult, error)
}

func (m *mockQuoteService) GetQuote(ctx context.Context, ticker string) (*marketdata.Quote, error) {
	if m.getQuoteFn != nil {
		return m.getQuoteFn(ctx, ticker)
	}
	return &marketdata.Quote{Ticker: ticker}, nil
}

func (m *mockQuoteService) GetQuotes(ctx context.Context, tickers []string) ([]marketdata.Quote, error) {
	if m.getQuotesFn != nil {
		return m.getQuotesFn(ctx, tickers)
	}
	return []marketdata.Quote{}, nil
}

func (m *mockQuoteService) SearchAssets(ctx context.Context, query string) ([]marketdata.SearchResult, error) {
	if m.searchAssetsFn != nil {
		return m.searchAssetsFn(ctx, query)
	}
	return []marketdata.SearchResult{}, nil
}

var _ services.QuoteServicer = (*mockQuoteService)(nil)

type mockPriceHistoryService struct {
	getHistoryFn    func(ctx context.Context, ticker string, days int) ([]models.PriceHistory, error)
	fetchAndStoreFn func(ctx context.Context, ticker string, days int) (int, error)
	updateAllFn     func(ctx context.Context, days int) (*services.BatchResult, error)
	statusFn        func(ctx context.Context) (*services.PriceHistoryStatus, error)
}

func (m *mockPriceHistoryService) GetCloses(context.Context, string, int) (analytics.Series, error) {
	return nil, nil
}

func (m *mockPriceHistoryService) GetHistory(ctx context.Context, ticker string, days int) ([]models.PriceHistory, error) {
	if m.getHistoryFn != nil {
		return m.getHistoryFn(ctx, ticker, days)
	}
	return []models.PriceHistory{}, nil
}

func (m *mockPriceHistoryService) FetchAndStore(ctx context.Context, ticker string, days int) (int, error) {
	if m.fetchAndStoreFn != nil {
		return m.fetchAndStoreFn(ctx, ticker, days)
	}
	return 0, nil
}

func (m *mockPriceHistoryService) UpdateAll(ctx context.Context, days int) (*services.BatchResult, error) {
	if m.updateAllFn != nil {
		return m.updateAllFn(ctx, days)
	}
	return &services.BatchResult{Results: []services.BatchItem{}}, nil
}

func (m *mockPriceHistoryService) LatestClose(context.Context, string, time.Time) (float64, bool, error) {
	return 0, false, nil
}

func (m *mockPriceHistoryService) Status(ctx context.Context) (*services.PriceHistoryStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return &services.PriceHistoryStatus{}, nil
}

var _ services.PriceHistoryServicer = (*mockPriceHistoryService)(nil)

type mockDividendService struct {
	getEstimatedDividendsFn func(ctx context.Context, portfolioID string) ([]services.EstimatedDividend, error)
	syncDividendsFn         func(ctx context.Context) (*services.DividendSyncResult, error)
	getDividendsFn          func(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error)
}

func (m *mockDividendService) GetEstimatedDividends(ctx context.Context, portfolioID string) ([]services.EstimatedDividend, error) {
	if m.getEstimatedDividendsFn != nil {
		return m.getEstimatedDividendsFn(ctx, portfolioID)
	}
	return []services.EstimatedDividend{}, nil
}

func (m *mockDividendService) SyncDividends(ctx context.Context) (*services.DividendSyncResult, error) {
	if m.syncDividendsFn != nil {
		return m.syncDividendsFn(ctx)
	}
	return &services.DividendSyncResult{}, nil
}

func (m *mockDividendService) GetDividends(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error) {
	if m.getDividendsFn != nil {
		return m.getDividendsFn(portfolioID, page)
	}
	resp := pagination.NewPageResponse([]models.Dividend{}, 1, 20, 0)
	return &resp, nil
}

var _ services.DividendServicer = (*mockDividendService)(nil)

type mockSnapshotService struct {
	computeAndRecordSnapshotsFn func(ctx context.Context, recordedAt time.Time) (int, error)
	getSnapshotsFn              func(portfolioID string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error)
}

func (m *mockSnapshotService) ComputeAndRecordSnapshots(ctx context.Context, recordedAt time.Time) (int, error) {
	if m.computeAndRecordSnapshotsFn != nil {
		return m.computeAndRecordSnapshotsFn(ctx, recordedAt)
	}
	return 0, nil
}

func (m *mockSnapshotService) GetSnapshots(portfolioID string, from, to time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioSnapshot], error) {
	if m.getSnapshotsFn != nil {
		return m.getSnapshotsFn(portfolioID, from, to, page)
	}
	resp := pagination.NewPageResponse([]models.PortfolioSnapshot{}, 1, 20, 0)
	return &resp, nil
}

var _ services.PortfolioSnapshotServicer = (*mockSnapshotService)(nil)
