package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/felipemaiocch/wenvest/internal/logger"
)

// DefaultConcurrency bounds parallel provider calls per request.
const DefaultConcurrency = 8

// MinSearchLength is the shortest query forwarded to the search API.
const MinSearchLength = 2

// Market routes requests to the regional or global provider by ticker shape
// and falls back to the other provider exactly once.
type Market struct {
	regional    Provider
	global      GlobalProvider
	funds       *FundRegistry
	cache       *QuoteCache
	concurrency int
	log         *zap.SugaredLogger
}

// NewMarket wires the two providers and the quote cache.
func NewMarket(regional Provider, global GlobalProvider, cache *QuoteCache, concurrency int) *Market {
	if cache == nil {
		cache = NewQuoteCache(DefaultQuoteTTL)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Market{
		regional:    regional,
		global:      global,
		cache:       cache,
		concurrency: concurrency,
		log:         logger.Named("marketdata"),
	}
}

// Quote returns the latest quote for ticker, served from cache when fresh.
// The returned quote carries the ticker as requested, not the provider symbol.
func (m *Market) Quote(ctx context.Context, ticker string) (*Quote, error) {
	t := NormalizeTicker(ticker)
	if t == "" {
		return nil, ErrNotFound
	}
	if q, ok := m.cache.Get(t); ok {
		return &q, nil
	}

	var errs []error
	for _, r := range m.routes(t) {
		q, err := r.provider.Quote(ctx, r.symbol)
		if err == nil {
			q.Ticker = t
			m.cache.Set(*q)
			return q, nil
		}
		m.log.Warnw("quote fetch failed", "ticker", t, "provider", r.provider.Name(), "symbol", r.symbol, "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("quote %s: %w", t, errors.Join(errs...))
}

// Quotes fetches several tickers in parallel. Failed tickers are left out;
// the result keeps request order and drops duplicates.
func (m *Market) Quotes(ctx context.Context, tickers []string) []Quote {
	unique := uniqueTickers(tickers)
	results := make([]*Quote, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, t := range unique {
		g.Go(func() error {
			q, err := m.Quote(gctx, t)
			if err == nil {
				results[i] = q
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out
}

// History returns daily bars for ticker. The fallback provider is tried when
// the primary fails or returns fewer than minPoints bars; the longer of the
// two answers wins.
func (m *Market) History(ctx context.Context, ticker string, days, minPoints int) ([]Bar, error) {
	t := NormalizeTicker(ticker)
	if minPoints < 1 {
		minPoints = 1
	}

	var best []Bar
	var errs []error
	for _, r := range m.routes(t) {
		bars, err := r.provider.History(ctx, r.symbol, days)
		if err != nil {
			m.log.Warnw("history fetch failed", "ticker", t, "provider", r.provider.Name(), "symbol", r.symbol, "error", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(bars) > len(best) {
			best = bars
		}
		if len(bars) >= minPoints {
			return bars, nil
		}
		m.log.Infow("history below required points", "ticker", t, "provider", r.provider.Name(), "points", len(bars), "required", minPoints)
	}
	if len(best) > 0 {
		return best, nil
	}
	return nil, fmt.Errorf("history %s: %w", t, errors.Join(errs...))
}

// Dividends returns the dividend events of ticker over the last days. B3
// tickers are looked up with the .SA suffix; others are tried as-is, then
// with the suffix.
func (m *Market) Dividends(ctx context.Context, ticker string, days int) ([]DividendEvent, error) {
	t := NormalizeTicker(ticker)
	candidates := []string{t, t + regionalSuffix}
	if IsRegionalTicker(t) {
		candidates = []string{BaseTicker(t) + regionalSuffix}
	}

	var errs []error
	for _, symbol := range candidates {
		events, err := m.global.Dividends(ctx, symbol, days)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(events) > 0 {
			return events, nil
		}
	}
	if len(errs) == len(candidates) {
		return nil, fmt.Errorf("dividends %s: %w", t, errors.Join(errs...))
	}
	return nil, nil
}

// WithFundRegistry enables CNPJ lookups in Search.
func (m *Market) WithFundRegistry(funds *FundRegistry) *Market {
	m.funds = funds
	return m
}

// Search resolves a CNPJ against the fund registry and forwards any other
// query to the global provider.
func (m *Market) Search(ctx context.Context, query string) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if m.funds != nil && IsCNPJ(q) {
		fund, err := m.funds.Lookup(ctx, q)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []SearchResult{*fund}, nil
	}
	if len(q) < MinSearchLength {
		return nil, nil
	}
	return m.global.Search(ctx, q)
}

// Cache exposes the quote cache for maintenance jobs.
func (m *Market) Cache() *QuoteCache {
	return m.cache
}

func uniqueTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		n := NormalizeTicker(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
