package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipemaiocch/wenvest/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Day returns midnight UTC of the given calendar date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestPortfolio creates a BRL portfolio with a unique name.
func CreateTestPortfolio(t *testing.T, db *gorm.DB) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		Name:         fmt.Sprintf("Test Portfolio %d", nextID()),
		Type:         "Moderado",
		BaseCurrency: "BRL",
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// CreateTestTransaction records a ledger entry with total = quantity × price.
func CreateTestTransaction(t *testing.T, db *gorm.DB, portfolioID, ticker string, txType models.TransactionType, quantity, price float64, date time.Time) *models.Transaction {
	t.Helper()

	qty := decimal.NewFromFloat(quantity)
	px := decimal.NewFromFloat(price)
	tx := &models.Transaction{
		PortfolioID: portfolioID,
		Ticker:      ticker,
		Type:        txType,
		Date:        date.UTC(),
		Quantity:    qty,
		Price:       px,
		Total:       qty.Mul(px),
		Origin:      models.DefaultOrigin,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestPriceHistory stores one close per consecutive calendar day
// starting at start.
func CreateTestPriceHistory(t *testing.T, db *gorm.DB, ticker string, start time.Time, closes ...float64) []models.PriceHistory {
	t.Helper()

	rows := make([]models.PriceHistory, len(closes))
	for i, c := range closes {
		rows[i] = models.PriceHistory{
			Ticker: ticker,
			Date:   models.DateOnly(start.AddDate(0, 0, i)),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	if len(rows) == 0 {
		return rows
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("failed to create test price history: %v", err)
	}
	return rows
}

// CreateTestDividend records a dividend credited to a portfolio.
func CreateTestDividend(t *testing.T, db *gorm.DB, portfolioID, ticker string, exDate time.Time, amount, quantity float64) *models.Dividend {
	t.Helper()

	amt := decimal.NewFromFloat(amount)
	qty := decimal.NewFromFloat(quantity)
	d := &models.Dividend{
		PortfolioID: portfolioID,
		Ticker:      ticker,
		ExDate:      models.DateOnly(exDate),
		Amount:      amt,
		Quantity:    qty,
		Total:       amt.Mul(qty),
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("failed to create test dividend: %v", err)
	}
	return d
}
