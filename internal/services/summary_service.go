package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/felipemaiocch/wenvest/internal/currency"
	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
)

// Price sources reported per asset.
const (
	PriceSourceQuote   = "quote"
	PriceSourceHistory = "history"
	PriceSourceCost    = "cost"
)

// summaryService values portfolios at current prices.
type summaryService struct {
	db                 *gorm.DB
	portfolioService   PortfolioServicer
	transactionService TransactionServicer
	market             MarketData
	converter          *currency.Converter
	now                func() time.Time
	log                *zap.SugaredLogger
}

// NewSummaryService creates a new SummaryServicer.
func NewSummaryService(db *gorm.DB, portfolioService PortfolioServicer, transactionService TransactionServicer, market MarketData, converter *currency.Converter) SummaryServicer {
	return &summaryService{
		db:                 db,
		portfolioService:   portfolioService,
		transactionService: transactionService,
		market:             market,
		converter:          converter,
		now:                time.Now,
		log:                logger.Named("summary"),
	}
}

// GetPortfolioSummary values every open position of the portfolio. Each
// asset is priced from its live quote, else the latest stored close, else
// its average cost. Amounts are converted to currency when it differs from
// the portfolio's base currency.
func (s *summaryService) GetPortfolioSummary(ctx context.Context, portfolioID, displayCurrency string) (*PortfolioSummary, error) {
	portfolio, err := s.portfolioService.GetPortfolioByID(portfolioID)
	if err != nil {
		return nil, err
	}

	base := strings.ToUpper(portfolio.BaseCurrency)
	if base == "" {
		base = s.converter.Base()
	}
	target := strings.ToUpper(strings.TrimSpace(displayCurrency))
	if target == "" {
		target = base
	}
	if !s.converter.Supports(target) || !s.converter.Supports(base) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported currency: "+target)
	}
	convert := func(amount float64) float64 {
		v, _ := s.converter.Convert(amount, base, target)
		return currency.Round(v, target)
	}

	txs, err := s.transactionService.GetLedger(portfolioID)
	if err != nil {
		return nil, err
	}
	all := ledger.Fold(txs)
	positions := ledger.Active(all)

	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}

	quotes := make(map[string]marketdata.Quote, len(tickers))
	if len(tickers) > 0 {
		for _, q := range s.market.Quotes(ctx, tickers) {
			quotes[ledger.NormalizeTicker(q.Ticker)] = q
		}
	}

	var unquoted []string
	for _, t := range tickers {
		if _, ok := quotes[t]; !ok {
			unquoted = append(unquoted, t)
		}
	}
	closes, err := getLatestCloses(s.db.WithContext(ctx), unquoted, s.now())
	if err != nil {
		return nil, err
	}
	if len(unquoted) > 0 {
		s.log.Infow("quotes unavailable, using fallback prices", "portfolio_id", portfolioID, "tickers", unquoted)
	}

	summary := &PortfolioSummary{
		PortfolioID: portfolioID,
		Currency:    target,
		Assets:      make([]AssetSummary, 0, len(positions)),
		Allocation:  []AllocationSlice{},
		LastUpdate:  s.now().UTC(),
	}

	var netWorth, cost, dividends float64
	for _, p := range all {
		d, _ := p.Dividends.Float64()
		dividends += d
	}

	for _, p := range positions {
		qty, _ := p.Quantity.Float64()
		avg, _ := p.AveragePrice.Float64()
		positionCost, _ := p.TotalCost.Float64()
		positionDividends, _ := p.Dividends.Float64()

		asset := AssetSummary{
			Ticker:       p.Ticker,
			Quantity:     qty,
			AveragePrice: avg,
			Cost:         positionCost,
			Dividends:    positionDividends,
			Type:         string(assetType(p.Ticker, "")),
		}

		if q, ok := quotes[p.Ticker]; ok && q.Price > 0 {
			asset.CurrentPrice = q.Price
			asset.PriceSource = PriceSourceQuote
			asset.Type = string(assetType(p.Ticker, q.Type))
			if !q.UpdatedAt.IsZero() {
				updated := q.UpdatedAt
				asset.UpdatedAt = &updated
			}
		} else if c, ok := closes[p.Ticker]; ok && c > 0 {
			asset.CurrentPrice = c
			asset.PriceSource = PriceSourceHistory
		} else {
			asset.CurrentPrice = avg
			asset.PriceSource = PriceSourceCost
		}

		asset.CurrentValue = qty * asset.CurrentPrice
		asset.Profit = asset.CurrentValue - asset.Cost
		if asset.Cost > 0 {
			asset.ProfitPct = asset.Profit / asset.Cost * 100
		}

		netWorth += asset.CurrentValue
		cost += asset.Cost
		summary.Assets = append(summary.Assets, asset)
	}

	sort.SliceStable(summary.Assets, func(i, j int) bool {
		if summary.Assets[i].CurrentValue == summary.Assets[j].CurrentValue {
			return summary.Assets[i].Ticker < summary.Assets[j].Ticker
		}
		return summary.Assets[i].CurrentValue > summary.Assets[j].CurrentValue
	})

	byType := make(map[string]*AllocationSlice)
	var order []string
	for i := range summary.Assets {
		a := &summary.Assets[i]
		if netWorth > 0 {
			a.AllocationPct = round2(a.CurrentValue / netWorth * 100)
		}
		slice, ok := byType[a.Type]
		if !ok {
			slice = &AllocationSlice{Type: a.Type}
			byType[a.Type] = slice
			order = append(order, a.Type)
		}
		slice.Value += a.CurrentValue
		slice.Count++

		a.AveragePrice = convert(a.AveragePrice)
		a.CurrentPrice = convert(a.CurrentPrice)
		a.CurrentValue = convert(a.CurrentValue)
		a.Cost = convert(a.Cost)
		a.Profit = convert(a.Profit)
		a.Dividends = convert(a.Dividends)
		a.ProfitPct = round2(a.ProfitPct)
		a.Formatted = currency.Format(a.CurrentValue, target)
	}
	for _, t := range order {
		slice := byType[t]
		if netWorth > 0 {
			slice.Percent = round2(slice.Value / netWorth * 100)
		}
		slice.Value = convert(slice.Value)
		summary.Allocation = append(summary.Allocation, *slice)
	}
	sort.SliceStable(summary.Allocation, func(i, j int) bool {
		return summary.Allocation[i].Value > summary.Allocation[j].Value
	})

	profit := netWorth - cost
	if cost > 0 {
		summary.VariationPct = round2(profit / cost * 100)
	}
	summary.NetWorth = convert(netWorth)
	summary.Cost = convert(cost)
	summary.Profit = convert(profit)
	summary.Dividends = convert(dividends)
	summary.FormattedWorth = currency.Format(summary.NetWorth, target)
	summary.FormattedProfit = currency.Format(summary.Profit, target)

	return summary, nil
}

// assetType prefers the provider's classification. Without one, B3 tickers
// ending in 11 are funds and everything else is a stock.
func assetType(ticker string, quoted marketdata.AssetType) marketdata.AssetType {
	if quoted != "" {
		return quoted
	}
	if marketdata.IsRegionalTicker(ticker) && strings.HasSuffix(marketdata.BaseTicker(ticker), "11") {
		return marketdata.AssetTypeFund
	}
	return marketdata.AssetTypeStock
}

func round2(v float64) float64 {
	return currency.Round(v, "")
}
