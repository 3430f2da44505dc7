package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/felipemaiocch/wenvest/internal/marketdata"
	"github.com/felipemaiocch/wenvest/internal/models"
	"github.com/felipemaiocch/wenvest/internal/testutil"
)

var historyNow = time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)

func newTestPriceHistoryService(db *gorm.DB, market MarketData) *priceHistoryService {
	txSvc := NewTransactionService(db, NewPortfolioService(db))
	svc := NewPriceHistoryService(db, market, txSvc, 0.6, 0).(*priceHistoryService)
	svc.now = fixedClock(historyNow)
	return svc
}

func TestRequiredPoints(t *testing.T) {
	tests := []struct {
		name string
		days int
		want int
	}{
		{"short_window_floors_at_min_points", 5, 6},
		{"thirty_days", 30, 13},
		{"one_year", 365, 152},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := requiredPoints(tt.days, 0.6); got != tt.want {
				t.Errorf("requiredPoints(%d) = %d, want %d", tt.days, got, tt.want)
			}
		})
	}
}

func TestFetchAndStore(t *testing.T) {
	t.Run("upserts_on_ticker_and_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{history: map[string][]marketdata.Bar{
			"PETR4": barsFrom(testutil.Day(2025, 6, 1), 30, 31, 32),
		}}
		svc := newTestPriceHistoryService(db, market)

		n, err := svc.FetchAndStore(context.Background(), "petr4", 10)
		testutil.AssertNoError(t, err)
		if n != 3 {
			t.Errorf("expected 3 stored, got %d", n)
		}

		market.history["PETR4"] = barsFrom(testutil.Day(2025, 6, 3), 40, 41)
		_, err = svc.FetchAndStore(context.Background(), "PETR4", 10)
		testutil.AssertNoError(t, err)

		var rows []models.PriceHistory
		db.Where("ticker = ?", "PETR4").Order("date ASC").Find(&rows)
		if len(rows) != 4 {
			t.Fatalf("expected 4 rows after upsert, got %d", len(rows))
		}
		if rows[2].Close != 40 {
			t.Errorf("expected updated close 40, got %v", rows[2].Close)
		}
	})

	t.Run("skips_non_positive_closes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{history: map[string][]marketdata.Bar{
			"VALE3": barsFrom(testutil.Day(2025, 6, 1), 60, 0, 61),
		}}
		svc := newTestPriceHistoryService(db, market)

		n, err := svc.FetchAndStore(context.Background(), "VALE3", 10)
		testutil.AssertNoError(t, err)
		if n != 2 {
			t.Errorf("expected 2 stored, got %d", n)
		}
	})

	t.Run("unknown_ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestPriceHistoryService(db, &fakeMarket{})

		_, err := svc.FetchAndStore(context.Background(), "XXXX3", 10)
		testutil.AssertAppError(t, err, "QUOTE_NOT_FOUND")
	})

	t.Run("provider_down", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestPriceHistoryService(db, &fakeMarket{err: errors.New("connection refused")})

		_, err := svc.FetchAndStore(context.Background(), "PETR4", 10)
		testutil.AssertAppError(t, err, "PROVIDER_UNAVAILABLE")
	})
}

func TestGetCloses(t *testing.T) {
	t.Run("serves_stored_rows_when_sufficient", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{}
		svc := newTestPriceHistoryService(db, market)
		testutil.CreateTestPriceHistory(t, db, "PETR4", testutil.Day(2025, 6, 1), 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

		closes, err := svc.GetCloses(context.Background(), "PETR4", 10)
		testutil.AssertNoError(t, err)
		if len(closes) != 10 {
			t.Fatalf("expected 10 closes, got %d", len(closes))
		}
		if closes[0].Value != 1 || closes[9].Value != 10 {
			t.Errorf("expected ascending closes, got %v", closes.Values())
		}
		if market.callCount("history") != 0 {
			t.Errorf("expected no provider call, got %d", market.callCount("history"))
		}
	})

	t.Run("backfills_when_insufficient", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{history: map[string][]marketdata.Bar{
			"PETR4": barsFrom(testutil.Day(2025, 6, 1), 1, 2, 3, 4, 5, 6, 7, 8),
		}}
		svc := newTestPriceHistoryService(db, market)
		testutil.CreateTestPriceHistory(t, db, "PETR4", testutil.Day(2025, 6, 1), 1, 2)

		closes, err := svc.GetCloses(context.Background(), "PETR4", 10)
		testutil.AssertNoError(t, err)
		if len(closes) != 8 {
			t.Errorf("expected 8 closes after backfill, got %d", len(closes))
		}
		if market.callCount("history") != 1 {
			t.Errorf("expected 1 provider call, got %d", market.callCount("history"))
		}
	})

	t.Run("provider_failure_returns_stored_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestPriceHistoryService(db, &fakeMarket{err: errors.New("timeout")})
		testutil.CreateTestPriceHistory(t, db, "PETR4", testutil.Day(2025, 6, 1), 1, 2)

		closes, err := svc.GetCloses(context.Background(), "PETR4", 10)
		testutil.AssertNoError(t, err)
		if len(closes) != 2 {
			t.Errorf("expected the 2 stored closes, got %d", len(closes))
		}
	})

	t.Run("ignores_rows_outside_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestPriceHistoryService(db, &fakeMarket{})
		testutil.CreateTestPriceHistory(t, db, "PETR4", testutil.Day(2025, 1, 1), 1, 2, 3)

		closes, err := svc.GetCloses(context.Background(), "PETR4", 10)
		testutil.AssertNoError(t, err)
		if len(closes) != 0 {
			t.Errorf("expected no closes in window, got %d", len(closes))
		}
	})

	t.Run("empty_ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestPriceHistoryService(db, &fakeMarket{})

		_, err := svc.GetCloses(context.Background(), " ", 10)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestLatestClose(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestPriceHistoryService(db, &fakeMarket{})
	testutil.CreateTestPriceHistory(t, db, "PETR4", testutil.Day(2025, 6, 1), 30, 31, 32)

	t.Run("on_or_before", func(t *testing.T) {
		c, ok, err := svc.LatestClose(context.Background(), "PETR4", testutil.Day(2025, 6, 2).Add(15*time.Hour))
		testutil.AssertNoError(t, err)
		if !ok || c != 31 {
			t.Errorf("expected 31, got %v (ok=%v)", c, ok)
		}
	})

	t.Run("after_last_row", func(t *testing.T) {
		c, ok, err := svc.LatestClose(context.Background(), "PETR4", testutil.Day(2025, 6, 20))
		testutil.AssertNoError(t, err)
		if !ok || c != 32 {
			t.Errorf("expected 32, got %v (ok=%v)", c, ok)
		}
	})

	t.Run("before_first_row", func(t *testing.T) {
		_, ok, err := svc.LatestClose(context.Background(), "PETR4", testutil.Day(2025, 5, 1))
		testutil.AssertNoError(t, err)
		if ok {
			t.Error("expected no close before the first row")
		}
	})
}

func TestGetLatestCloses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	testutil.CreateTestPriceHistory(t, db, "PETR4", testutil.Day(2025, 6, 1), 30, 31, 32)
	testutil.CreateTestPriceHistory(t, db, "VALE3", testutil.Day(2025, 6, 1), 60)

	closes, err := getLatestCloses(db, []string{"PETR4", "VALE3", "ITSA4"}, testutil.Day(2025, 6, 2))
	testutil.AssertNoError(t, err)

	if closes["PETR4"] != 31 {
		t.Errorf("expected PETR4 31, got %v", closes["PETR4"])
	}
	if closes["VALE3"] != 60 {
		t.Errorf("expected VALE3 60, got %v", closes["VALE3"])
	}
	if _, ok := closes["ITSA4"]; ok {
		t.Error("expected no entry for ITSA4")
	}
}

func TestUpdateAll(t *testing.T) {
	t.Run("continues_past_failures", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{history: map[string][]marketdata.Bar{
			"PETR4": barsFrom(testutil.Day(2025, 6, 6), 30, 31),
		}}
		svc := newTestPriceHistoryService(db, market)
		p := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 30, testutil.Day(2025, 1, 2))
		testutil.CreateTestTransaction(t, db, p.ID, "XXXX3", models.TransactionTypeBuy, 1, 10, testutil.Day(2025, 1, 2))

		result, err := svc.UpdateAll(context.Background(), UpdateDays)
		testutil.AssertNoError(t, err)

		if result.Total != 2 || result.Success != 1 || result.Failed != 1 {
			t.Errorf("expected 2/1/1, got %d/%d/%d", result.Total, result.Success, result.Failed)
		}
		if result.Results[0].Ticker != "PETR4" || result.Results[0].Count != 2 {
			t.Errorf("unexpected first result: %+v", result.Results[0])
		}
		if result.Results[1].Status != "error" || result.Results[1].Error == "" {
			t.Errorf("expected error entry, got %+v", result.Results[1])
		}
	})

	t.Run("stops_on_cancelled_context", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		market := &fakeMarket{}
		svc := newTestPriceHistoryService(db, market)
		p := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, p.ID, "PETR4", models.TransactionTypeBuy, 1, 30, testutil.Day(2025, 1, 2))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.UpdateAll(ctx, UpdateDays)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if market.callCount("history") != 0 {
			t.Errorf("expected no provider calls, got %d", market.callCount("history"))
		}
	})
}

func TestPriceHistoryStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestPriceHistoryService(db, &fakeMarket{})

	status, err := svc.Status(context.Background())
	testutil.AssertNoError(t, err)
	if status.Records != 0 || status.Ready {
		t.Errorf("expected empty, not ready, got %+v", status)
	}

	closes := make([]float64, 101)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	testutil.CreateTestPriceHistory(t, db, "PETR4", testutil.Day(2024, 1, 1), closes...)
	testutil.CreateTestPriceHistory(t, db, "VALE3", testutil.Day(2024, 1, 1), 1)

	status, err = svc.Status(context.Background())
	testutil.AssertNoError(t, err)
	if status.Records != 102 || status.Tickers != 2 || !status.Ready {
		t.Errorf("expected 102 records, 2 tickers, ready; got %+v", status)
	}
}
