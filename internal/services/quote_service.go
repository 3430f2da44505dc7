package services

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/ledger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
)

// MaxQuoteTickers bounds a single batch quote request.
const MaxQuoteTickers = 50

// quoteService exposes live quotes and asset search.
type quoteService struct {
	market MarketData
}

// NewQuoteService creates a new QuoteServicer.
func NewQuoteService(market MarketData) QuoteServicer {
	return &quoteService{market: market}
}

func marketError(err error) error {
	if errors.Is(err, marketdata.ErrNotFound) || errors.Is(err, marketdata.ErrNoData) {
		return apperrors.Wrap(apperrors.ErrQuoteNotFound, err)
	}
	return apperrors.Wrap(apperrors.ErrProviderUnavailable, err)
}

// GetQuote returns the live quote of one ticker.
func (s *quoteService) GetQuote(ctx context.Context, ticker string) (*marketdata.Quote, error) {
	ticker = ledger.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ticker is required")
	}
	q, err := s.market.Quote(ctx, ticker)
	if err != nil {
		return nil, marketError(err)
	}
	return q, nil
}

// GetQuotes returns the quotes that could be resolved, in request order.
// Unknown tickers are left out rather than failing the batch.
func (s *quoteService) GetQuotes(ctx context.Context, tickers []string) ([]marketdata.Quote, error) {
	cleaned := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = ledger.NormalizeTicker(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one ticker is required")
	}
	if len(cleaned) > MaxQuoteTickers {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "too many tickers")
	}

	quotes := s.market.Quotes(ctx, cleaned)
	if quotes == nil {
		quotes = []marketdata.Quote{}
	}
	return quotes, nil
}

// SearchAssets looks up assets by name, symbol or fund CNPJ.
func (s *quoteService) SearchAssets(ctx context.Context, query string) ([]marketdata.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "query is required")
	}
	results, err := s.market.Search(ctx, query)
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			return []marketdata.SearchResult{}, nil
		}
		return nil, marketError(err)
	}
	if results == nil {
		results = []marketdata.SearchResult{}
	}
	return results, nil
}
