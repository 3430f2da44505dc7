package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/pagination"
	"github.com/felipemaiocch/wenvest/internal/testutil"
)

func newTestDividendService(db *gorm.DB, market MarketData) *dividendService {
	portfolios := NewPortfolioService(db)
	svc := NewDividendService(db, portfolios, NewTransactionService(db, portfolios), market, 2).(*dividendService)
	svc.now = fixedClock(time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC))
	return svc
}

func TestGetEstimatedDividends(t *testing.T) {
	t.Run("scales_events_by_current_quantity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{dividends: map[string][]marketdata.DividendEvent{
			"PETR4": {
				{Date: testutil.Day(2025, 3, 1), Amount: 0.5},
				{Date: testutil.Day(2024, 1, 1), Amount: 9},
			},
			"VALE3": {{Date: testutil.Day(2024, 12, 1), Amount: 2}},
			"ITSA4": {{Date: testutil.Day(2025, 2, 1), Amount: 1}},
		}}
		svc := newTestDividendService(db, market)
		p := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 100, 30, testutil.Day(2024, 1, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeSell, 40, 35, testutil.Day(2024, 6, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "VALE3", models.TransactionTypeBuy, 10, 60, testutil.Day(2024, 1, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "ITSA4", models.TransactionTypeBuy, 10, 10, testutil.Day(2024, 1, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "ITSA4", models.TransactionTypeSell, 10, 11, testutil.Day(2024, 2, 2))

		events, err := svc.GetEstimatedDividends(context.Background(), p.ID)
		testutil.AssertNoError(t, err)

		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %+v", events)
		}
		if events[0].Ticker != "VALE3" || !approx(events[0].Total, 20) {
			t.Errorf("expected VALE3 total 20 first, got %+v", events[0])
		}
		if events[1].Ticker != "PETR4" || events[1].Quantity != 60 || !approx(events[1].Total, 30) {
			t.Errorf("expected PETR4 60 × 0.5 second, got %+v", events[1])
		}
	})

	t.Run("empty_ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestDividendService(db, &fakeMarket{})
		p := testutil.CreateTestPortfolio(t, db)

		events, err := svc.GetEstimatedDividends(context.Background(), p.ID)
		testutil.AssertNoError(t, err)
		if events == nil || len(events) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", events)
		}
	})

	t.Run("unknown_portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestDividendService(db, &fakeMarket{})

		_, err := svc.GetEstimatedDividends(context.Background(), "0190a7d4-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}

func TestSyncDividends(t *testing.T) {
	t.Run("inserts_then_dedupes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{dividends: map[string][]marketdata.DividendEvent{
			"PETR4": {
				{Date: testutil.Day(2025, 1, 5), Amount: 0.7},
				{Date: testutil.Day(2025, 2, 1), Amount: 0.5},
			},
			"VALE3": {{Date: testutil.Day(2025, 3, 1), Amount: 2}},
		}}
		svc := newTestDividendService(db, market)
		p1 := testutil.CreateTestPortfolio(t, db)
		p2 := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, p1.ID, "PETR4", models.TransactionTypeBuy, 100, 30, testutil.Day(2025, 1, 10))
		testutil.CreateTestTransaction(t, db, p2.ID, "VALE3.SA", models.TransactionTypeBuy, 10, 60, testutil.Day(2025, 1, 10))

		result, err := svc.SyncDividends(context.Background())
		testutil.AssertNoError(t, err)
		if result.Inserted != 2 || result.Skipped != 1 {
			t.Errorf("expected 2 inserted, 1 skipped; got %+v", result)
		}

		var petr models.Dividend
		db.Where("portfolio_id = ? AND ticker = ?", p1.ID, "PETR4").First(&petr)
		if !petr.Quantity.Equal(decimal.NewFromInt(100)) || !petr.Total.Equal(decimal.NewFromInt(50)) {
			t.Errorf("expected 100 × 0.5 = 50, got %s × %s = %s", petr.Quantity, petr.Amount, petr.Total)
		}

		var vale int64
		db.Model(&models.Dividend{}).Where("portfolio_id = ? AND ticker = ?", p2.ID, "VALE3").Count(&vale)
		if vale != 1 {
			t.Errorf("expected VALE3.SA stored as VALE3, got %d rows", vale)
		}

		result, err = svc.SyncDividends(context.Background())
		testutil.AssertNoError(t, err)
		if result.Inserted != 0 || result.Skipped != 3 {
			t.Errorf("expected second run to skip everything, got %+v", result)
		}
	})

	t.Run("dedupes_against_rounded_stored_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{dividends: map[string][]marketdata.DividendEvent{
			"TAEE11": {{Date: testutil.Day(2025, 2, 3), Amount: 0.314159265}},
		}}
		svc := newTestDividendService(db, market)
		p := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, p.ID, "TAEE11", models.TransactionTypeBuy, 100, 35, testutil.Day(2025, 1, 10))

		// The row as numeric(24,8) hands it back.
		stored := &models.Dividend{
			PortfolioID: p.ID,
			Ticker:      "TAEE11",
			ExDate:      testutil.Day(2025, 2, 3),
			Amount:      decimal.RequireFromString("0.31415927"),
			Quantity:    decimal.NewFromInt(100),
			Total:       decimal.RequireFromString("31.415927"),
		}
		if err := db.Create(stored).Error; err != nil {
			t.Fatalf("failed to seed dividend: %v", err)
		}

		result, err := svc.SyncDividends(context.Background())
		testutil.AssertNoError(t, err)
		if result.Inserted != 0 || result.Skipped != 1 {
			t.Errorf("expected the stored event to be skipped, got %+v", result)
		}
	})

	t.Run("stores_amount_at_column_scale", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{dividends: map[string][]marketdata.DividendEvent{
			"TAEE11": {{Date: testutil.Day(2025, 2, 3), Amount: 0.314159265}},
		}}
		svc := newTestDividendService(db, market)
		p := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, p.ID, "TAEE11", models.TransactionTypeBuy, 100, 35, testutil.Day(2025, 1, 10))

		_, err := svc.SyncDividends(context.Background())
		testutil.AssertNoError(t, err)

		var d models.Dividend
		if err := db.Where("portfolio_id = ?", p.ID).First(&d).Error; err != nil {
			t.Fatalf("expected stored dividend: %v", err)
		}
		testutil.AssertDecimal(t, "amount", d.Amount, "0.31415927")
	})

	t.Run("quantity_at_ex_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{dividends: map[string][]marketdata.DividendEvent{
			"PETR4": {{Date: testutil.Day(2025, 3, 1), Amount: 1}},
		}}
		svc := newTestDividendService(db, market)
		p := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 100, 30, testutil.Day(2025, 1, 10))
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeSell, 30, 31, testutil.Day(2025, 2, 10))
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeSell, 70, 32, testutil.Day(2025, 4, 10))

		result, err := svc.SyncDividends(context.Background())
		testutil.AssertNoError(t, err)
		if result.Inserted != 1 {
			t.Fatalf("expected 1 inserted, got %+v", result)
		}

		var d models.Dividend
		db.Where("portfolio_id = ?", p.ID).First(&d)
		if !d.Quantity.Equal(decimal.NewFromInt(70)) {
			t.Errorf("expected 70 held on the ex-date, got %s", d.Quantity)
		}
	})
}

func TestGetDividends(t *testing.T) {
	t.Run("paginated_newest_first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestDividendService(db, &fakeMarket{})
		p := testutil.CreateTestPortfolio(t, db)
		other := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestDividend(t, db, p.ID, "PETR4", testutil.Day(2025, 1, 5), 0.5, 100)
		testutil.CreateTestDividend(t, db, p.ID, "PETR4", testutil.Day(2025, 3, 5), 0.6, 100)
		testutil.CreateTestDividend(t, db, p.ID, "VALE3", testutil.Day(2025, 2, 5), 2, 10)
		testutil.CreateTestDividend(t, db, other.ID, "VALE3", testutil.Day(2025, 2, 5), 2, 10)

		page, err := svc.GetDividends(p.ID, pagination.PageRequest{Page: 1, PageSize: 2})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 || len(page.Data) != 2 {
			t.Fatalf("expected 2 of 3, got %d of %d", len(page.Data), page.TotalItems)
		}
		if !page.Data[0].ExDate.Equal(testutil.Day(2025, 3, 5)) {
			t.Errorf("expected newest ex-date first, got %s", page.Data[0].ExDate)
		}
	})

	t.Run("unknown_portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestDividendService(db, &fakeMarket{})

		_, err := svc.GetDividends("0190a7d4-0000-7000-8000-000000000000", pagination.PageRequest{})
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}
