package services

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/felipemaiocch/wenvest/internal/analytics"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/logger"
)

const (
	DefaultVolatilityDays = 30
	DefaultBenchmark      = "^BVSP"

	// analyticsLookbackDays is the price window behind portfolio metrics.
	analyticsLookbackDays = 365
)

// analyticsService computes risk metrics from stored closes.
type analyticsService struct {
	portfolioService    PortfolioServicer
	transactionService  TransactionServicer
	priceHistoryService PriceHistoryServicer
	benchmark           string
	riskFree            float64
	concurrency         int
	log                 *zap.SugaredLogger
}

// NewAnalyticsService creates a new AnalyticsServicer. riskFree is an
// annual rate; benchmark defaults to the Ibovespa index.
func NewAnalyticsService(portfolioService PortfolioServicer, transactionService TransactionServicer, priceHistoryService PriceHistoryServicer, benchmark string, riskFree float64, concurrency int) AnalyticsServicer {
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &analyticsService{
		portfolioService:    portfolioService,
		transactionService:  transactionService,
		priceHistoryService: priceHistoryService,
		benchmark:           benchmark,
		riskFree:            riskFree,
		concurrency:         concurrency,
		log:                 logger.Named("analytics"),
	}
}

// holdings is the priced state of a portfolio's open positions.
type holdings struct {
	tickers []string
	returns map[string]analytics.Series
	weights map[string]float64
}

// CalculateVolatility returns the annualized volatility of ticker over its
// last days stored closes (trading sessions, not calendar days), in percent.
func (s *analyticsService) CalculateVolatility(ctx context.Context, ticker string, days int) (*float64, error) {
	if days <= 0 {
		days = DefaultVolatilityDays
	}
	closes, err := s.priceHistoryService.GetCloses(ctx, ticker, sessionWindow(days))
	if err != nil {
		return nil, err
	}
	if len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return analytics.VolatilityOfCloses(closes.Values()), nil
}

// sessionWindow is the calendar window that holds the given number of
// trading sessions, plus a week for holidays.
func sessionWindow(sessions int) int {
	return int(math.Ceil(float64(sessions)*365/analytics.TradingDaysPerYear)) + 7
}

// loadHoldings prices the open positions of a portfolio. Weights use the
// latest close times the current quantity, or the cost basis without a
// close, and are applied to the whole history.
func (s *analyticsService) loadHoldings(ctx context.Context, portfolioID string) (*holdings, error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}
	txs, err := s.transactionService.GetLedger(portfolioID)
	if err != nil {
		return nil, err
	}
	positions := ledger.Active(ledger.Fold(txs))

	closes := make([]analytics.Series, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range positions {
		g.Go(func() error {
			series, err := s.priceHistoryService.GetCloses(gctx, p.Ticker, analyticsLookbackDays)
			if err != nil {
				s.log.Warnw("closes unavailable", "ticker", p.Ticker, "error", err)
				return nil
			}
			closes[i] = series
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := &holdings{returns: make(map[string]analytics.Series, len(positions))}
	values := make(map[string]float64, len(positions))
	for i, p := range positions {
		h.tickers = append(h.tickers, p.Ticker)
		qty, _ := p.Quantity.Float64()
		if n := len(closes[i]); n > 0 {
			values[p.Ticker] = closes[i][n-1].Value * qty
		} else {
			values[p.Ticker], _ = p.TotalCost.Float64()
		}
		if r := analytics.DatedReturns(closes[i]); len(r) > 0 {
			h.returns[p.Ticker] = r
		}
	}
	h.weights = analytics.Weights(values)
	return h, nil
}

func (h *holdings) portfolioReturns() analytics.Series {
	return analytics.PortfolioReturns(h.returns, h.weights)
}

// CalculatePortfolioMetrics returns Sharpe, beta against the benchmark,
// volatility and Sortino of the weighted portfolio returns. Nil when fewer
// than MinDataPoints daily returns exist.
func (s *analyticsService) CalculatePortfolioMetrics(ctx context.Context, portfolioID string) (*PortfolioMetrics, error) {
	h, err := s.loadHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	returns := h.portfolioReturns()
	if len(returns) < analytics.MinDataPoints {
		return nil, nil
	}
	values := returns.Values()

	metrics := &PortfolioMetrics{
		Sharpe:     analytics.Sharpe(values, s.riskFree),
		Volatility: analytics.Volatility(values),
		Sortino:    analytics.Sortino(values, s.riskFree),
	}

	bench, err := s.priceHistoryService.GetCloses(ctx, s.benchmark, analyticsLookbackDays)
	if err != nil {
		return nil, err
	}
	metrics.Beta = analytics.Beta(returns, analytics.DatedReturns(bench))
	return metrics, nil
}

// CalculateDrawdown compounds the portfolio returns into an index and
// reports its deepest decline. Nil when there are no returns.
func (s *analyticsService) CalculateDrawdown(ctx context.Context, portfolioID string) (*analytics.Drawdown, error) {
	h, err := s.loadHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	returns := h.portfolioReturns()
	if len(returns) == 0 {
		return nil, nil
	}
	start := returns[0].Date.Add(-24 * time.Hour)
	return analytics.MaxDrawdown(analytics.CumulativeIndex(start, returns)), nil
}

// CalculateRiskReturn returns the annualized risk and return of each held
// asset. Nil when no asset has enough history.
func (s *analyticsService) CalculateRiskReturn(ctx context.Context, portfolioID string) ([]analytics.RiskReturnPoint, error) {
	h, err := s.loadHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	points := analytics.RiskReturn(h.tickers, h.returns)
	if len(points) == 0 {
		return nil, nil
	}
	return points, nil
}

// CalculateCorrelationMatrix correlates the daily returns of the held
// assets. Nil with fewer than two assets carrying history.
func (s *analyticsService) CalculateCorrelationMatrix(ctx context.Context, portfolioID string) (*analytics.Correlation, error) {
	h, err := s.loadHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	var tickers []string
	for _, t := range h.tickers {
		if len(h.returns[t]) > 0 {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) < 2 {
		return nil, nil
	}
	return analytics.CorrelationMatrix(tickers, h.returns), nil
}
