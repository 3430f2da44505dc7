package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
)

// dividendWindowDays is how far back dividend events are looked up.
const dividendWindowDays = 365

// dividendService tracks dividends paid to portfolio positions.
type dividendService struct {
	db                 *gorm.DB
	portfolioService   PortfolioServicer
	transactionService TransactionServicer
	market             MarketData
	concurrency        int
	now                func() time.Time
	log                *zap.SugaredLogger
}

// NewDividendService creates a new DividendServicer.
func NewDividendService(db *gorm.DB, portfolioService PortfolioServicer, transactionService TransactionServicer, market MarketData, concurrency int) DividendServicer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &dividendService{
		db:                 db,
		portfolioService:   portfolioService,
		transactionService: transactionService,
		market:             market,
		concurrency:        concurrency,
		now:                time.Now,
		log:                logger.Named("dividends"),
	}
}

// fetchEvents looks up the dividend events of each ticker in parallel.
// Tickers whose lookup fails are logged and get no events.
func (s *dividendService) fetchEvents(ctx context.Context, tickers []string) map[string][]marketdata.DividendEvent {
	events := make([][]marketdata.DividendEvent, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			evts, err := s.market.Dividends(gctx, t, dividendWindowDays)
			if err != nil {
				s.log.Warnw("dividend lookup failed", "ticker", t, "error", err)
				return nil
			}
			events[i] = evts
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]marketdata.DividendEvent, len(tickers))
	for i, t := range tickers {
		if len(events[i]) > 0 {
			out[t] = events[i]
		}
	}
	return out
}

// GetEstimatedDividends scales the last twelve months of dividend events of
// each open position by its current quantity, oldest first.
func (s *dividendService) GetEstimatedDividends(ctx context.Context, portfolioID string) ([]EstimatedDividend, error) {
	txs, err := s.transactionService.GetLedger(portfolioID)
	if err != nil {
		return nil, err
	}
	positions := ledger.Active(ledger.Fold(txs))

	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}
	events := s.fetchEvents(ctx, tickers)

	cutoff := models.DateOnly(s.now()).AddDate(-1, 0, 0)
	out := []EstimatedDividend{}
	for _, p := range positions {
		qty, _ := p.Quantity.Float64()
		for _, e := range events[p.Ticker] {
			if e.Amount <= 0 || e.Date.Before(cutoff) {
				continue
			}
			out = append(out, EstimatedDividend{
				Ticker:   p.Ticker,
				Date:     models.DateOnly(e.Date),
				Amount:   e.Amount,
				Quantity: qty,
				Total:    e.Amount * qty,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// SyncDividends records the dividend events of the last year for every
// portfolio and ticker. An event is skipped when nothing was held at the
// end of its ex-date or when the same ex-date and amount is already stored.
func (s *dividendService) SyncDividends(ctx context.Context) (*DividendSyncResult, error) {
	ledgers, err := s.transactionService.GetAllLedgers()
	if err != nil {
		return nil, err
	}

	// Group by portfolio and ticker without the .SA suffix.
	groups := make(map[string]map[string][]models.Transaction, len(ledgers))
	tickerSet := make(map[string]bool)
	for portfolioID, txs := range ledgers {
		byTicker := make(map[string][]models.Transaction)
		for _, tx := range txs {
			tx.Ticker = marketdata.BaseTicker(tx.Ticker)
			byTicker[tx.Ticker] = append(byTicker[tx.Ticker], tx)
			tickerSet[tx.Ticker] = true
		}
		groups[portfolioID] = byTicker
	}

	tickers := make([]string, 0, len(tickerSet))
	for t := range tickerSet {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	events := s.fetchEvents(ctx, tickers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &DividendSyncResult{}
	portfolioIDs := make([]string, 0, len(groups))
	for id := range groups {
		portfolioIDs = append(portfolioIDs, id)
	}
	sort.Strings(portfolioIDs)

	for _, portfolioID := range portfolioIDs {
		for ticker, txs := range groups[portfolioID] {
			evts := events[ticker]
			if len(evts) == 0 {
				continue
			}
			existing, err := s.existingKeys(ctx, portfolioID, ticker)
			if err != nil {
				return result, err
			}

			for _, e := range evts {
				exDate := models.DateOnly(e.Date)
				qty := ledger.QuantityAt(txs, ticker, exDate)
				if !qty.IsPositive() {
					result.Skipped++
					continue
				}
				amount := decimal.NewFromFloat(e.Amount).Round(models.AmountScale)
				dividend := &models.Dividend{
					PortfolioID: portfolioID,
					Ticker:      ticker,
					ExDate:      exDate,
					Amount:      amount,
					Quantity:    qty,
					Total:       amount.Mul(qty),
				}
				key := dividend.DedupeKey()
				if existing[key] {
					result.Skipped++
					continue
				}
				if err := s.db.WithContext(ctx).Create(dividend).Error; err != nil {
					s.log.Warnw("dividend insert failed", "portfolio_id", portfolioID, "ticker", ticker, "ex_date", exDate, "error", err)
					result.Skipped++
					continue
				}
				existing[key] = true
				result.Inserted++
			}
		}
	}

	s.log.Infow("dividend sync finished", "portfolios", len(portfolioIDs), "tickers", len(tickers), "inserted", result.Inserted, "skipped", result.Skipped)
	return result, nil
}

func (s *dividendService) existingKeys(ctx context.Context, portfolioID, ticker string) (map[string]bool, error) {
	var rows []models.Dividend
	if err := s.db.WithContext(ctx).
		Where("portfolio_id = ? AND ticker = ?", portfolioID, ticker).
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	keys := make(map[string]bool, len(rows))
	for i := range rows {
		keys[rows[i].DedupeKey()] = true
	}
	return keys, nil
}

// GetDividends retrieves a paginated list of a portfolio's recorded
// dividends, newest ex-date first unless order=asc.
func (s *dividendService) GetDividends(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error) {
	if _, err := s.portfolioService.GetPortfolioByID(portfolioID); err != nil {
		return nil, err
	}
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Dividend{}).Where("portfolio_id = ?", portfolioID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var dividends []models.Dividend
	if err := base.Scopes(pagination.Sorted(page, "ex_date"), pagination.Paginate(page)).
		Find(&dividends).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(dividends, page.Page, page.PageSize, totalItems)
	return &result, nil
}
