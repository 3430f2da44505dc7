package services

import (
	"context"
	"sync"
	"time"

	"github.com/felipemaiocch/wenvest/internal/analytics"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/models"
)

func init() {
	logger.Init("test")
}

// fakeMarket serves canned market data. Unknown tickers get ErrNotFound.
type fakeMarket struct {
	mu        sync.Mutex
	quotes    map[string]marketdata.Quote
	history   map[string][]marketdata.Bar
	dividends map[string][]marketdata.DividendEvent
	search    []marketdata.SearchResult
	err       error
	calls     map[string]int
}

var _ MarketData = (*fakeMarket)(nil)

func (f *fakeMarket) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *fakeMarket) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeMarket) Quote(_ context.Context, ticker string) (*marketdata.Quote, error) {
	f.record("quote")
	if f.err != nil {
		return nil, f.err
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return nil, marketdata.ErrNotFound
	}
	return &q, nil
}

func (f *fakeMarket) Quotes(ctx context.Context, tickers []string) []marketdata.Quote {
	var out []marketdata.Quote
	for _, t := range tickers {
		if q, err := f.Quote(ctx, t); err == nil {
			out = append(out, *q)
		}
	}
	return out
}

func (f *fakeMarket) History(_ context.Context, ticker string, _, _ int) ([]marketdata.Bar, error) {
	f.record("history")
	if f.err != nil {
		return nil, f.err
	}
	bars, ok := f.history[ticker]
	if !ok {
		return nil, marketdata.ErrNotFound
	}
	return bars, nil
}

func (f *fakeMarket) Dividends(_ context.Context, ticker string, _ int) ([]marketdata.DividendEvent, error) {
	f.record("dividends")
	if f.err != nil {
		return nil, f.err
	}
	return f.dividends[ticker], nil
}

func (f *fakeMarket) Search(_ context.Context, _ string) ([]marketdata.SearchResult, error) {
	f.record("search")
	if f.err != nil {
		return nil, f.err
	}
	return f.search, nil
}

// fakePrices serves canned close series.
type fakePrices struct {
	closes map[string]analytics.Series
	err    error

	mu        sync.Mutex
	requested map[string]int
}

var _ PriceHistoryServicer = (*fakePrices)(nil)

func (f *fakePrices) GetCloses(_ context.Context, ticker string, days int) (analytics.Series, error) {
	f.mu.Lock()
	if f.requested == nil {
		f.requested = make(map[string]int)
	}
	f.requested[ticker] = days
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.closes[ticker], nil
}

func (f *fakePrices) GetHistory(context.Context, string, int) ([]models.PriceHistory, error) {
	return nil, nil
}

func (f *fakePrices) FetchAndStore(context.Context, string, int) (int, error) {
	return 0, nil
}

func (f *fakePrices) UpdateAll(context.Context, int) (*BatchResult, error) {
	return &BatchResult{}, nil
}

func (f *fakePrices) LatestClose(_ context.Context, ticker string, onOrBefore time.Time) (float64, bool, error) {
	var last float64
	found := false
	for _, p := range f.closes[ticker] {
		if p.Date.After(onOrBefore) {
			break
		}
		last, found = p.Value, true
	}
	return last, found, nil
}

func (f *fakePrices) Status(context.Context) (*PriceHistoryStatus, error) {
	return &PriceHistoryStatus{}, nil
}

// closesFrom builds a series of consecutive daily closes starting at start.
func closesFrom(start time.Time, values ...float64) analytics.Series {
	s := make(analytics.Series, len(values))
	for i, v := range values {
		s[i] = analytics.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return s
}

// barsFrom builds consecutive daily bars with the given closes.
func barsFrom(start time.Time, closes ...float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, len(closes))
	for i, c := range closes {
		bars[i] = marketdata.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return bars
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
