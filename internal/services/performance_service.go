package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/felipemaiocch/wenvest/internal/analytics"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/models"
)

const (
	DefaultPerformanceDays = 365
	MaxPerformanceDays     = 3650

	// performanceLookback extends the price window so the first days of the
	// series have a close to carry forward.
	performanceLookback = 10
)

// performanceService builds the daily value series of a portfolio.
type performanceService struct {
	transactionService  TransactionServicer
	portfolioService    PortfolioServicer
	priceHistoryService PriceHistoryServicer
	concurrency         int
	now                 func() time.Time
	log                 *zap.SugaredLogger
}

// NewPerformanceService creates a new PerformanceServicer.
func NewPerformanceService(portfolioService PortfolioServicer, transactionService TransactionServicer, priceHistoryService PriceHistoryServicer, concurrency int) PerformanceServicer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &performanceService{
		transactionService:  transactionService,
		portfolioService:    portfolioService,
		priceHistoryService: priceHistoryService,
		concurrency:         concurrency,
		now:                 time.Now,
		log:                 logger.Named("performance"),
	}
}

// GetPortfolioPerformance replays the ledger day by day over the last days
// (never before the first transaction). Each day's value is the positions
// held at the end of that day priced at the latest stored close on or
// before it; invested is their cost basis. Days with nothing invested or
// no value are left out.
func (s *performanceService) GetPortfolioPerformance(ctx context.Context, portfolioID string, days int) ([]PerformancePoint, error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultPerformanceDays
	}
	days = min(days, MaxPerformanceDays)

	txs, err := s.transactionService.GetLedger(portfolioID)
	if err != nil {
		return nil, err
	}
	points := []PerformancePoint{}
	if len(txs) == 0 {
		return points, nil
	}
	txs = ledger.Chronological(txs)

	today := models.DateOnly(s.now())
	start := today.AddDate(0, 0, -days)
	if first := models.DateOnly(txs[0].Date); first.After(start) {
		start = first
	}
	window := int(today.Sub(start).Hours()/24) + performanceLookback

	closes := s.loadCloses(ctx, ledger.Tickers(txs), window)

	book := ledger.NewBook()
	next := 0
	cursor := make(map[string]int, len(closes))
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		endOfDay := day.AddDate(0, 0, 1)
		for next < len(txs) && txs[next].Date.Before(endOfDay) {
			book.Apply(txs[next])
			next++
		}

		var value, invested float64
		for _, p := range ledger.Active(book.Positions()) {
			qty, _ := p.Quantity.Float64()
			cost, _ := p.TotalCost.Float64()
			price, ok := closeOnOrBefore(closes[p.Ticker], day, cursor, p.Ticker)
			if !ok {
				price, _ = p.AveragePrice.Float64()
			}
			value += qty * price
			invested += cost
		}
		if value <= 0 || invested <= 0 {
			continue
		}
		points = append(points, PerformancePoint{
			Date:      day,
			Value:     round2(value),
			Invested:  round2(invested),
			ReturnPct: round2((value - invested) / invested * 100),
		})
	}
	return points, nil
}

// loadCloses fetches the close series of every ticker in parallel. A
// ticker that fails is logged and left without prices.
func (s *performanceService) loadCloses(ctx context.Context, tickers []string, days int) map[string]analytics.Series {
	series := make([]analytics.Series, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			closes, err := s.priceHistoryService.GetCloses(gctx, t, days)
			if err != nil {
				s.log.Warnw("closes unavailable", "ticker", t, "error", err)
				return nil
			}
			series[i] = closes
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]analytics.Series, len(tickers))
	for i, t := range tickers {
		if len(series[i]) > 0 {
			out[t] = series[i]
		}
	}
	return out
}

// closeOnOrBefore advances the ticker's cursor through a date-ascending
// series and returns the last close not after day. Days must be visited in
// increasing order.
func closeOnOrBefore(series analytics.Series, day time.Time, cursor map[string]int, ticker string) (float64, bool) {
	i := cursor[ticker]
	for i < len(series) && !series[i].Date.After(day) {
		i++
	}
	cursor[ticker] = i
	if i == 0 {
		return 0, false
	}
	return series[i-1].Value, true
}
