package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/felipemaiocch/wenvest/internal/analytics"
	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/models"
)

const (
	// DefaultHistoryCoverage is the share of expected trading days that must
	// be stored before the provider is skipped.
	DefaultHistoryCoverage = 0.6

	// BackfillDays and UpdateDays are the windows of the batch jobs.
	BackfillDays = 365
	UpdateDays   = 5

	// historyReadyRecords is the row count above which analytics are enabled.
	historyReadyRecords = 100

	upsertBatchSize = 500
)

// priceHistoryService keeps the local daily price store filled from the
// market providers.
type priceHistoryService struct {
	db                 *gorm.DB
	market             MarketData
	transactionService TransactionServicer
	coverage           float64
	delay              time.Duration
	now                func() time.Time
	log                *zap.SugaredLogger
}

// NewPriceHistoryService creates a new PriceHistoryServicer. delay paces
// provider calls in UpdateAll.
func NewPriceHistoryService(db *gorm.DB, market MarketData, transactionService TransactionServicer, coverage float64, delay time.Duration) PriceHistoryServicer {
	if coverage <= 0 || coverage > 1 {
		coverage = DefaultHistoryCoverage
	}
	return &priceHistoryService{
		db:                 db,
		market:             market,
		transactionService: transactionService,
		coverage:           coverage,
		delay:              delay,
		now:                time.Now,
		log:                logger.Named("price_history"),
	}
}

// requiredPoints is how many stored closes make a days-long window usable:
// coverage × the trading days in the window, and never fewer than the
// closes needed for MinDataPoints returns.
func requiredPoints(days int, coverage float64) int {
	expected := int(math.Ceil(coverage * float64(days) * analytics.TradingDaysPerYear / 365))
	return max(expected, analytics.MinDataPoints+1)
}

func (s *priceHistoryService) since(days int) time.Time {
	return models.DateOnly(s.now()).AddDate(0, 0, -days)
}

func (s *priceHistoryService) stored(ctx context.Context, ticker string, from time.Time) ([]models.PriceHistory, error) {
	var rows []models.PriceHistory
	if err := s.db.WithContext(ctx).
		Where("ticker = ? AND date >= ?", ticker, from).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// ensure returns the stored bars of the window, fetching from the providers
// first when too few are stored. Provider failures are logged and the stored
// rows returned as they are.
func (s *priceHistoryService) ensure(ctx context.Context, ticker string, days int) ([]models.PriceHistory, error) {
	ticker = ledger.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ticker is required")
	}
	if days <= 0 {
		days = BackfillDays
	}
	from := s.since(days)

	rows, err := s.stored(ctx, ticker, from)
	if err != nil {
		return nil, err
	}
	if len(rows) >= requiredPoints(days, s.coverage) {
		return rows, nil
	}

	count, err := s.FetchAndStore(ctx, ticker, days)
	if err != nil {
		s.log.Warnw("history backfill failed, using stored rows", "ticker", ticker, "stored", len(rows), "error", err)
		return rows, nil
	}
	if count == 0 {
		return rows, nil
	}
	return s.stored(ctx, ticker, from)
}

// GetCloses returns the daily closes of ticker over the last days, oldest first.
func (s *priceHistoryService) GetCloses(ctx context.Context, ticker string, days int) (analytics.Series, error) {
	rows, err := s.ensure(ctx, ticker, days)
	if err != nil {
		return nil, err
	}
	series := make(analytics.Series, 0, len(rows))
	for _, r := range rows {
		series = append(series, analytics.Point{Date: models.DateOnly(r.Date), Value: r.Close})
	}
	return series, nil
}

// GetHistory returns the stored daily bars of ticker over the last days.
func (s *priceHistoryService) GetHistory(ctx context.Context, ticker string, days int) ([]models.PriceHistory, error) {
	rows, err := s.ensure(ctx, ticker, days)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.PriceHistory{}
	}
	return rows, nil
}

// FetchAndStore downloads days of history for ticker and upserts it on
// (ticker, date). It returns the number of bars written.
func (s *priceHistoryService) FetchAndStore(ctx context.Context, ticker string, days int) (int, error) {
	ticker = ledger.NormalizeTicker(ticker)
	bars, err := s.market.History(ctx, ticker, days, requiredPoints(days, s.coverage))
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) || errors.Is(err, marketdata.ErrNoData) {
			return 0, apperrors.Wrap(apperrors.ErrQuoteNotFound, err)
		}
		return 0, apperrors.Wrap(apperrors.ErrProviderUnavailable, err)
	}
	if len(bars) == 0 {
		return 0, nil
	}

	rows := make([]models.PriceHistory, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		rows = append(rows, models.PriceHistory{
			Ticker: ticker,
			Date:   models.DateOnly(b.Date),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	rows = dedupeBars(rows)
	if len(rows) == 0 {
		return 0, nil
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).CreateInBatches(&rows, upsertBatchSize).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.log.Infow("stored price history", "ticker", ticker, "records", len(rows))
	return len(rows), nil
}

// dedupeBars keeps the last bar of each day; a batch upsert cannot touch
// the same row twice.
func dedupeBars(rows []models.PriceHistory) []models.PriceHistory {
	index := make(map[time.Time]int, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if i, ok := index[r.Date]; ok {
			out[i] = r
			continue
		}
		index[r.Date] = len(out)
		out = append(out, r)
	}
	return out
}

// UpdateAll refreshes days of history for every ledger ticker, one at a
// time, pausing between provider calls. A failed ticker does not stop the
// batch; a cancelled context does.
func (s *priceHistoryService) UpdateAll(ctx context.Context, days int) (*BatchResult, error) {
	tickers, err := s.transactionService.GetAllTickers()
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Total: len(tickers), Results: make([]BatchItem, 0, len(tickers))}
	for i, ticker := range tickers {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		count, err := s.FetchAndStore(ctx, ticker, days)
		if err != nil {
			s.log.Warnw("price update failed", "ticker", ticker, "error", err)
			result.Failed++
			result.Results = append(result.Results, BatchItem{Ticker: ticker, Status: "error", Error: errorMessage(err)})
			continue
		}
		result.Success++
		result.Results = append(result.Results, BatchItem{Ticker: ticker, Status: "ok", Count: count})
	}

	s.log.Infow("price update finished", "days", days, "total", result.Total, "success", result.Success, "failed", result.Failed)
	return result, nil
}

// LatestClose returns the most recent stored close of ticker on or before
// the given day. ok is false when none is stored.
func (s *priceHistoryService) LatestClose(ctx context.Context, ticker string, onOrBefore time.Time) (float64, bool, error) {
	var row models.PriceHistory
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND date <= ?", ledger.NormalizeTicker(ticker), models.DateOnly(onOrBefore)).
		Order("date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return row.Close, true, nil
}

// Status reports how much history is stored. Analytics are considered
// ready once more than a hundred rows exist.
func (s *priceHistoryService) Status(ctx context.Context) (*PriceHistoryStatus, error) {
	var status PriceHistoryStatus
	db := s.db.WithContext(ctx).Model(&models.PriceHistory{})
	if err := db.Count(&status.Records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.WithContext(ctx).Model(&models.PriceHistory{}).
		Distinct("ticker").Count(&status.Tickers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	status.Ready = status.Records > historyReadyRecords
	return &status, nil
}

// getLatestCloses returns, per ticker, the newest stored close on or before
// the given day. Tickers without history are absent from the map.
func getLatestCloses(db *gorm.DB, tickers []string, onOrBefore time.Time) (map[string]float64, error) {
	if len(tickers) == 0 {
		return map[string]float64{}, nil
	}

	type closeRow struct {
		Ticker string
		Close  float64
	}
	var rows []closeRow

	subq := db.Table("price_history").
		Select("ticker, MAX(date) AS max_date").
		Where("ticker IN ? AND date <= ?", tickers, models.DateOnly(onOrBefore)).
		Group("ticker")

	if err := db.Table("price_history ph").
		Select("ph.ticker, ph.close").
		Joins("INNER JOIN (?) latest ON ph.ticker = latest.ticker AND ph.date = latest.max_date", subq).
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make(map[string]float64, len(rows))
	for _, r := range rows {
		result[r.Ticker] = r.Close
	}
	return result, nil
}

// errorMessage returns the client-facing message of an AppError, or the
// error text otherwise.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			return appErr.Message + ": " + appErr.Internal.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
