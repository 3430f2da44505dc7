package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const brapiBaseURL = "https://brapi.dev/api"

type brapiResponse struct {
	Results []brapiResult `json:"results"`
}

type brapiResult struct {
	Symbol                     string          `json:"symbol"`
	Currency                   string          `json:"currency"`
	RegularMarketPrice         float64         `json:"regularMarketPrice"`
	RegularMarketChangePercent float64         `json:"regularMarketChangePercent"`
	RegularMarketTime          json.RawMessage `json:"regularMarketTime"`
	HistoricalDataPrice        []brapiBar      `json:"historicalDataPrice"`
}

type brapiBar struct {
	Date   int64    `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// BrapiProvider fetches B3 quotes and history from brapi.dev.
type BrapiProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	token      string
}

// NewBrapiProvider creates a Brapi provider. An empty baseURL selects the
// public endpoint; token may be empty for the free tier.
func NewBrapiProvider(httpClient *http.Client, baseURL, token string) *BrapiProvider {
	if baseURL == "" {
		baseURL = brapiBaseURL
	}
	return &BrapiProvider{httpClient: httpClient, baseURL: strings.TrimSuffix(baseURL, "/"), token: token}
}

// Name returns the provider's display name.
func (p *BrapiProvider) Name() string { return "Brapi" }

// Quote fetches the latest price for a B3 symbol without the .SA suffix.
func (p *BrapiProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	result, err := p.fetch(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	if result.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("brapi %s: %w", symbol, ErrNoData)
	}

	currency := result.Currency
	if currency == "" {
		currency = "BRL"
	}
	return &Quote{
		Ticker:    result.Symbol,
		Price:     result.RegularMarketPrice,
		Currency:  currency,
		ChangePct: result.RegularMarketChangePercent,
		Type:      brapiAssetType(result.Symbol),
		UpdatedAt: parseMarketTime(result.RegularMarketTime),
	}, nil
}

// History fetches daily bars. Bars without a close are skipped.
func (p *BrapiProvider) History(ctx context.Context, symbol string, days int) ([]Bar, error) {
	params := url.Values{}
	params.Set("range", historyRange(days))
	params.Set("interval", "1d")

	result, err := p.fetch(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	cutoff := dateOnly(time.Now()).AddDate(0, 0, -days)
	bars := make([]Bar, 0, len(result.HistoricalDataPrice))
	for _, b := range result.HistoricalDataPrice {
		if b.Close == nil || *b.Close <= 0 {
			continue
		}
		date := dateOnly(time.Unix(b.Date, 0))
		if date.Before(cutoff) {
			continue
		}
		bars = append(bars, Bar{
			Date:   date,
			Open:   deref(b.Open),
			High:   deref(b.High),
			Low:    deref(b.Low),
			Close:  *b.Close,
			Volume: int64(deref(b.Volume)),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("brapi %s history: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func (p *BrapiProvider) fetch(ctx context.Context, symbol string, params url.Values) (*brapiResult, error) {
	if params == nil {
		params = url.Values{}
	}
	if p.token != "" {
		params.Set("token", p.token)
	}
	endpoint := p.baseURL + "/quote/" + url.PathEscape(symbol)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var resp brapiResponse
	if err := getJSON(ctx, p.httpClient, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("brapi %s: %w", symbol, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("brapi %s: %w", symbol, ErrNotFound)
	}
	return &resp.Results[0], nil
}

// brapiAssetType infers the instrument kind from the symbol: units and
// real-estate funds end in 11.
func brapiAssetType(symbol string) AssetType {
	if strings.HasSuffix(symbol, "11") {
		return AssetTypeFund
	}
	return AssetTypeStock
}

// parseMarketTime accepts an RFC 3339 string or unix seconds.
func parseMarketTime(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Now().UTC()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
		return time.Now().UTC()
	}
	var secs int64
	if err := json.Unmarshal(raw, &secs); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Now().UTC()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
