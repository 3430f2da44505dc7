// Package marketdata fetches quotes, daily history and dividend events from
// external providers. A regional provider (Brapi) serves B3 listings and a
// global provider (Yahoo Finance) serves everything else; each is the other's
// fallback.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AssetType classifies a quoted instrument.
type AssetType string

const (
	AssetTypeStock AssetType = "stock"
	AssetTypeFund  AssetType = "fund"
	AssetTypeETF   AssetType = "etf"
)

var (
	// ErrNotFound means the provider does not know the symbol.
	ErrNotFound = errors.New("symbol not found")
	// ErrNoData means the provider answered without usable data.
	ErrNoData = errors.New("no data returned")
)

// Quote is a live price snapshot.
type Quote struct {
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	ChangePct float64   `json:"change_pct"`
	Type      AssetType `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bar is one daily OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DividendEvent is a per-share cash distribution on its ex-date.
type DividendEvent struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// SearchResult is one match of an asset search.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Exchange string `json:"exchange,omitempty"`
	CNPJ     string `json:"cnpj,omitempty"`
}

// Provider fetches quotes and daily history for provider-native symbols.
type Provider interface {
	// Name returns the provider's display name.
	Name() string

	// Quote returns the latest price for symbol.
	Quote(ctx context.Context, symbol string) (*Quote, error)

	// History returns daily bars covering roughly the last days calendar
	// days, oldest first.
	History(ctx context.Context, symbol string, days int) ([]Bar, error)
}

// GlobalProvider is the fallback-of-last-resort provider. It also serves
// dividend events and free-text search.
type GlobalProvider interface {
	Provider
	Dividends(ctx context.Context, symbol string, days int) ([]DividendEvent, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

// getJSON performs a GET and decodes a JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
