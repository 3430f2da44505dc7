package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	yahooChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooSearchURL = "https://query2.finance.yahoo.com/v1/finance/search"
)

// yahooChartResponse is the v8 chart API envelope.
type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		InstrumentType     string  `json:"instrumentType"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		PreviousClose      float64 `json:"previousClose"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp []int64 `json:"timestamp"`
	Events    struct {
		Dividends map[string]struct {
			Amount float64 `json:"amount"`
			Date   int64   `json:"date"`
		} `json:"dividends"`
	} `json:"events"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
		Exchange  string `json:"exchDisp"`
	} `json:"quotes"`
}

// YahooProvider fetches quotes, history, dividends and search results from
// Yahoo Finance.
type YahooProvider struct {
	httpClient *http.Client
	chartURL   string // overridable for tests
	searchURL  string // overridable for tests
	now        func() time.Time
}

// NewYahooProvider creates a Yahoo Finance provider. Empty URLs select the
// public endpoints.
func NewYahooProvider(httpClient *http.Client, chartURL, searchURL string) *YahooProvider {
	if chartURL == "" {
		chartURL = yahooChartURL
	}
	if searchURL == "" {
		searchURL = yahooSearchURL
	}
	return &YahooProvider{
		httpClient: httpClient,
		chartURL:   strings.TrimSuffix(chartURL, "/"),
		searchURL:  searchURL,
		now:        time.Now,
	}
}

// Name returns the provider's display name.
func (p *YahooProvider) Name() string { return "Yahoo Finance" }

// Quote reads the latest price from the chart metadata.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	result, err := p.chart(ctx, symbol, url.Values{"range": {"5d"}, "interval": {"1d"}})
	if err != nil {
		return nil, err
	}
	meta := result.Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	prev := meta.ChartPreviousClose
	if prev == 0 {
		prev = meta.PreviousClose
	}
	changePct := 0.0
	if prev > 0 {
		changePct = (meta.RegularMarketPrice - prev) / prev * 100
	}
	updated := p.now().UTC()
	if meta.RegularMarketTime > 0 {
		updated = time.Unix(meta.RegularMarketTime, 0).UTC()
	}

	return &Quote{
		Ticker:    meta.Symbol,
		Price:     meta.RegularMarketPrice,
		Currency:  meta.Currency,
		ChangePct: changePct,
		Type:      yahooAssetType(meta.InstrumentType),
		UpdatedAt: updated,
	}, nil
}

// History returns daily bars for the last days calendar days.
func (p *YahooProvider) History(ctx context.Context, symbol string, days int) ([]Bar, error) {
	result, err := p.chart(ctx, symbol, p.window(days))
	if err != nil {
		return nil, err
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s history: %w", symbol, ErrNoData)
	}

	q := result.Indicators.Quote[0]
	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := at(q.Close, i)
		if closePrice == nil || *closePrice <= 0 {
			continue
		}
		bars = append(bars, Bar{
			Date:   dateOnly(time.Unix(ts, 0)),
			Open:   deref(at(q.Open, i)),
			High:   deref(at(q.High, i)),
			Low:    deref(at(q.Low, i)),
			Close:  *closePrice,
			Volume: int64(deref(at(q.Volume, i))),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s history: %w", symbol, ErrNoData)
	}
	return bars, nil
}

// Dividends returns dividend events over the last days calendar days,
// oldest first.
func (p *YahooProvider) Dividends(ctx context.Context, symbol string, days int) ([]DividendEvent, error) {
	params := p.window(days)
	params.Set("events", "div")
	result, err := p.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	events := make([]DividendEvent, 0, len(result.Events.Dividends))
	for _, d := range result.Events.Dividends {
		if d.Amount <= 0 {
			continue
		}
		events = append(events, DividendEvent{Date: dateOnly(time.Unix(d.Date, 0)), Amount: d.Amount})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

// Search looks up symbols by free text.
func (p *YahooProvider) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", "10")
	params.Set("newsCount", "0")

	var resp yahooSearchResponse
	if err := getJSON(ctx, p.httpClient, p.searchURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		results = append(results, SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Type:     q.QuoteType,
			Exchange: q.Exchange,
		})
	}
	return results, nil
}

func (p *YahooProvider) window(days int) url.Values {
	end := p.now().UTC()
	start := end.AddDate(0, 0, -days)
	return url.Values{
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		"period2":  {strconv.FormatInt(end.Unix(), 10)},
		"interval": {"1d"},
	}
}

func (p *YahooProvider) chart(ctx context.Context, symbol string, params url.Values) (*yahooChartResult, error) {
	endpoint := p.chartURL + "/" + url.PathEscape(symbol) + "?" + params.Encode()

	var resp yahooChartResponse
	if err := getJSON(ctx, p.httpClient, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %w", symbol, resp.Chart.Error.Description, ErrNotFound)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	return &resp.Chart.Result[0], nil
}

func yahooAssetType(instrumentType string) AssetType {
	switch strings.ToUpper(instrumentType) {
	case "ETF":
		return AssetTypeETF
	case "MUTUALFUND":
		return AssetTypeFund
	default:
		return AssetTypeStock
	}
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
