// Package ledger reconstructs positions from a portfolio's transaction ledger.
//
// Positions use a single blended average cost: buys raise quantity and cost,
// sells remove cost at the current average so the average itself never moves
// on a sale. There is no lot-level (FIFO/LIFO) tracking.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipemaiocch/wenvest/internal/models"
)

// Epsilon is the smallest quantity still considered an open position.
var Epsilon = decimal.New(1, -6)

// Position is the derived holding of one ticker.
type Position struct {
	Ticker       string          `json:"ticker"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Dividends    decimal.Decimal `json:"dividends"`
}

// IsActive reports whether the position holds a positive quantity.
// Zero and negative positions are never valued.
func (p Position) IsActive() bool {
	return p.Quantity.GreaterThan(Epsilon)
}

// Book accumulates positions as transactions are applied in date order.
type Book struct {
	positions map[string]*Position
	order     []string
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{positions: make(map[string]*Position)}
}

// Apply folds a single transaction into the book.
func (b *Book) Apply(tx models.Transaction) {
	ticker := NormalizeTicker(tx.Ticker)
	p, ok := b.positions[ticker]
	if !ok {
		p = &Position{Ticker: ticker}
		b.positions[ticker] = p
		b.order = append(b.order, ticker)
	}

	switch tx.Type {
	case models.TransactionTypeBuy:
		cost := tx.Total
		if cost.IsZero() {
			cost = tx.Quantity.Mul(tx.Price)
		}
		// An oversold or orphan SELL leaves a negative quantity; the next BUY
		// opens a fresh position instead of netting against it.
		if !p.Quantity.IsPositive() {
			p.Quantity = decimal.Zero
			p.TotalCost = decimal.Zero
			p.AveragePrice = decimal.Zero
		}
		p.Quantity = p.Quantity.Add(tx.Quantity)
		p.TotalCost = p.TotalCost.Add(cost)
		if p.Quantity.IsPositive() {
			p.AveragePrice = p.TotalCost.Div(p.Quantity)
		}
	case models.TransactionTypeSell:
		if p.Quantity.IsPositive() {
			p.TotalCost = p.TotalCost.Sub(tx.Quantity.Mul(p.AveragePrice))
		}
		p.Quantity = p.Quantity.Sub(tx.Quantity)
		if !p.IsActive() {
			p.TotalCost = decimal.Zero
			p.AveragePrice = decimal.Zero
		}
	case models.TransactionTypeDividend:
		amount := tx.Total
		if amount.IsZero() {
			amount = tx.Quantity.Mul(tx.Price)
		}
		p.Dividends = p.Dividends.Add(amount)
	}
}

// Positions returns every position in first-seen order, including closed ones.
func (b *Book) Positions() []Position {
	out := make([]Position, 0, len(b.order))
	for _, t := range b.order {
		out = append(out, *b.positions[t])
	}
	return out
}

// Position returns the current position for ticker.
func (b *Book) Position(ticker string) (Position, bool) {
	p, ok := b.positions[NormalizeTicker(ticker)]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Fold replays the ledger chronologically and returns one position per ticker.
func Fold(txs []models.Transaction) []Position {
	book := NewBook()
	for _, tx := range Chronological(txs) {
		book.Apply(tx)
	}
	return book.Positions()
}

// FoldAt is Fold restricted to transactions dated on or before asOf.
func FoldAt(txs []models.Transaction, asOf time.Time) []Position {
	book := NewBook()
	for _, tx := range Chronological(txs) {
		if tx.Date.After(asOf) {
			break
		}
		book.Apply(tx)
	}
	return book.Positions()
}

// Active filters out closed, dust and negative positions.
func Active(positions []Position) []Position {
	out := make([]Position, 0, len(positions))
	for _, p := range positions {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// QuantityAt returns the quantity of ticker held at the end of date, counting
// buys minus sells.
func QuantityAt(txs []models.Transaction, ticker string, date time.Time) decimal.Decimal {
	ticker = NormalizeTicker(ticker)
	cutoff := models.DateOnly(date).AddDate(0, 0, 1)
	qty := decimal.Zero
	for _, tx := range txs {
		if NormalizeTicker(tx.Ticker) != ticker || !tx.Date.Before(cutoff) {
			continue
		}
		switch tx.Type {
		case models.TransactionTypeBuy:
			qty = qty.Add(tx.Quantity)
		case models.TransactionTypeSell:
			qty = qty.Sub(tx.Quantity)
		}
	}
	return qty
}

// Chronological returns a copy of txs sorted by date. Entries sharing a date
// keep their ledger order.
func Chronological(txs []models.Transaction) []models.Transaction {
	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// Tickers returns the distinct normalized tickers of the ledger, sorted.
func Tickers(txs []models.Transaction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tx := range txs {
		t := NormalizeTicker(tx.Ticker)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
