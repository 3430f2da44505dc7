package marketdata

import (
	"net/http"
	"time"
)

// Settings configures the default provider stack.
type Settings struct {
	BrapiBaseURL   string
	BrapiToken     string
	YahooChartURL  string
	YahooSearchURL string
	CVMRegistryURL string
	QuoteTTL       time.Duration
	Concurrency    int
}

// NewDefaultMarket wires Brapi for B3 tickers, Yahoo Finance for the rest
// and the CVM registry for CNPJ search, sharing one HTTP client.
func NewDefaultMarket(httpClient *http.Client, s Settings) *Market {
	regional := NewBrapiProvider(httpClient, s.BrapiBaseURL, s.BrapiToken)
	global := NewYahooProvider(httpClient, s.YahooChartURL, s.YahooSearchURL)
	return NewMarket(regional, global, NewQuoteCache(s.QuoteTTL), s.Concurrency).
		WithFundRegistry(NewFundRegistry(httpClient, s.CVMRegistryURL))
}
