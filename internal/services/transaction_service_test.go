package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
	"github.com/felipemaiocch/wenvest/internal/testutil"
)

func buyInput(ticker string, qty, price float64, date time.Time) TransactionInput {
	return TransactionInput{
		Ticker:   ticker,
		Type:     models.TransactionTypeBuy,
		Date:     date,
		Quantity: decimal.NewFromFloat(qty),
		Price:    decimal.NewFromFloat(price),
	}
}

func TestAddTransaction(t *testing.T) {
	t.Run("normalizes_and_computes_total", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		tx, err := svc.AddTransaction(p.ID, buyInput(" petr4 ", 10, 32.5, testutil.Day(2025, 3, 10)))
		testutil.AssertNoError(t, err)

		if tx.ID == "" {
			t.Fatal("expected generated ID")
		}
		if tx.Ticker != "PETR4" {
			t.Errorf("expected PETR4, got %q", tx.Ticker)
		}
		testutil.AssertDecimal(t, "total", tx.Total, "325")
		if tx.Origin != models.DefaultOrigin {
			t.Errorf("expected origin %q, got %q", models.DefaultOrigin, tx.Origin)
		}
	})

	t.Run("lowercase_type_accepted", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		in := buyInput("VALE3", 1, 60, testutil.Day(2025, 3, 10))
		in.Type = "sell"
		in.Origin = "Import"
		tx, err := svc.AddTransaction(p.ID, in)
		testutil.AssertNoError(t, err)
		if tx.Type != models.TransactionTypeSell {
			t.Errorf("expected SELL, got %q", tx.Type)
		}
		if tx.Origin != "Import" {
			t.Errorf("expected origin Import, got %q", tx.Origin)
		}
	})

	t.Run("default_date_when_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		before := time.Now().Add(-time.Second)
		tx, err := svc.AddTransaction(p.ID, buyInput("ITSA4", 1, 10, time.Time{}))
		testutil.AssertNoError(t, err)
		if tx.Date.Before(before) {
			t.Errorf("expected date close to now, got %s", tx.Date)
		}
	})

	t.Run("invalid_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		in := buyInput("PETR4", 1, 10, testutil.Day(2025, 1, 2))
		in.Type = "TRANSFER"
		_, err := svc.AddTransaction(p.ID, in)
		testutil.AssertAppError(t, err, "INVALID_TRANSACTION_TYPE")
	})

	t.Run("zero_quantity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		_, err := svc.AddTransaction(p.ID, buyInput("PETR4", 0, 10, testutil.Day(2025, 1, 2)))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("negative_price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		_, err := svc.AddTransaction(p.ID, buyInput("PETR4", 1, -1, testutil.Day(2025, 1, 2)))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("empty_ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		_, err := svc.AddTransaction(p.ID, buyInput("  ", 1, 1, testutil.Day(2025, 1, 2)))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))

		_, err := svc.AddTransaction("0190a7d4-0000-7000-8000-000000000000", buyInput("PETR4", 1, 1, testutil.Day(2025, 1, 2)))
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}

func TestGetTransactions(t *testing.T) {
	t.Run("newest_first_and_paginated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		for d := 1; d <= 5; d++ {
			testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, d))
		}

		page, err := svc.GetTransactions(p.ID, pagination.PageRequest{Page: 1, PageSize: 2}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 5 || len(page.Data) != 2 {
			t.Fatalf("expected 2 of 5, got %d of %d", len(page.Data), page.TotalItems)
		}
		if !page.Data[0].Date.Equal(testutil.Day(2025, 1, 5)) {
			t.Errorf("expected newest first, got %s", page.Data[0].Date)
		}
	})

	t.Run("ascending_order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, 1))

		page, err := svc.GetTransactions(p.ID, pagination.PageRequest{Order: pagination.OrderAsc}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if !page.Data[0].Date.Equal(testutil.Day(2025, 1, 1)) {
			t.Errorf("expected oldest first, got %s", page.Data[0].Date)
		}
	})

	t.Run("filters", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeSell, 1, 12, testutil.Day(2025, 2, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "VALE3", models.TransactionTypeBuy, 1, 60, testutil.Day(2025, 3, 2))

		ticker := "petr4"
		page, err := svc.GetTransactions(p.ID, pagination.PageRequest{}, TransactionFilter{Ticker: &ticker})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Errorf("ticker filter: expected 2, got %d", page.TotalItems)
		}

		sell := models.TransactionTypeSell
		page, err = svc.GetTransactions(p.ID, pagination.PageRequest{}, TransactionFilter{Type: &sell})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 {
			t.Errorf("type filter: expected 1, got %d", page.TotalItems)
		}

		from := testutil.Day(2025, 2, 1)
		page, err = svc.GetTransactions(p.ID, pagination.PageRequest{}, TransactionFilter{FromDate: &from})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Errorf("date filter: expected 2, got %d", page.TotalItems)
		}
	})

	t.Run("unknown_portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))

		_, err := svc.GetTransactions("0190a7d4-0000-7000-8000-000000000000", pagination.PageRequest{}, TransactionFilter{})
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}

func TestGetLedger(t *testing.T) {
	t.Run("chronological", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)

		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeSell, 1, 12, testutil.Day(2025, 2, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 2, 10, testutil.Day(2025, 1, 2))

		txs, err := svc.GetLedger(p.ID)
		testutil.AssertNoError(t, err)
		if len(txs) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(txs))
		}
		if txs[0].Type != models.TransactionTypeBuy {
			t.Errorf("expected BUY first, got %s", txs[0].Type)
		}
	})

	t.Run("all_ledgers_skip_deleted_portfolios", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		portfolios := NewPortfolioService(db)
		svc := NewTransactionService(db, portfolios)

		live := testutil.CreateTestPortfolio(t, db)
		gone := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, live.ID, "PETR4", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, 2))
		testutil.CreateTestTransaction(t, db, gone.ID, "VALE3", models.TransactionTypeBuy, 1, 60, testutil.Day(2025, 1, 2))
		testutil.AssertNoError(t, portfolios.DeletePortfolio(gone.ID))

		ledgers, err := svc.GetAllLedgers()
		testutil.AssertNoError(t, err)
		if len(ledgers) != 1 || len(ledgers[live.ID]) != 1 {
			t.Errorf("expected only the live portfolio, got %v", ledgers)
		}

		tickers, err := svc.GetAllTickers()
		testutil.AssertNoError(t, err)
		if len(tickers) != 1 || tickers[0] != "PETR4" {
			t.Errorf("expected [PETR4], got %v", tickers)
		}
	})
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("removes_from_ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))
		p := testutil.CreateTestPortfolio(t, db)
		tx := testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, 2))

		testutil.AssertNoError(t, svc.DeleteTransaction(tx.ID))

		txs, err := svc.GetLedger(p.ID)
		testutil.AssertNoError(t, err)
		if len(txs) != 0 {
			t.Errorf("expected empty ledger, got %d entries", len(txs))
		}
		_, err = svc.GetTransactionByID(tx.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewPortfolioService(db))

		err := svc.DeleteTransaction("0190a7d4-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestGetTickers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTransactionService(db, NewPortfolioService(db))
	p := testutil.CreateTestPortfolio(t, db)

	testutil.CreateTestTransaction(t, db, p.ID, "VALE3", models.TransactionTypeBuy, 1, 60, testutil.Day(2025, 1, 2))
	testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, 2))
	testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeSell, 1, 12, testutil.Day(2025, 1, 3))

	tickers, err := svc.GetTickers(p.ID)
	testutil.AssertNoError(t, err)
	if len(tickers) != 2 || tickers[0] != "PETR4" || tickers[1] != "VALE3" {
		t.Errorf("expected [PETR4 VALE3], got %v", tickers)
	}
}
