package services

import (
	"context"
	"errors"
	"testing"

	"crocus/internal/fx"
	"crocus/internal/models"
	"crocus/internal/testutil"
)

func TestPublishRates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewRateService(db, nil, nil)

	t.Run("stores_and_corrects", func(t *testing.T) {
		err := svc.PublishRates("2024-06-01", fx.Table{"usd": testutil.Dec("1.08"), "EUR": testutil.Dec("1")}, RateSourceManual)
		testutil.AssertNoError(t, err)
		err = svc.PublishRates("2024-06-01", fx.Table{"USD": testutil.Dec("1.09")}, RateSourceManual)
		testutil.AssertNoError(t, err)

		var rows []models.FxRate
		db.Where("date = ?", "2024-06-01").Find(&rows)
		if len(rows) != 1 {
			t.Fatalf("expected the pivot to be skipped and one row kept, got %d", len(rows))
		}
		if rows[0].Currency != "USD" {
			t.Errorf("expected upper-cased code, got %s", rows[0].Currency)
		}
		testutil.AssertDecimal(t, rows[0].Rate, "1.09")
	})

	tests := []struct {
		name  string
		day   string
		table fx.Table
	}{
		{name: "bad_date", day: "01.06.2024", table: fx.Table{"USD": testutil.Dec("1.08")}},
		{name: "empty_table", day: "2024-06-01", table: fx.Table{}},
		{name: "bad_code", day: "2024-06-01", table: fx.Table{"US": testutil.Dec("1.08")}},
		{name: "zero_rate", day: "2024-06-01", table: fx.Table{"USD": testutil.Dec("0")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.PublishRates(tc.day, tc.table, RateSourceManual)
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		})
	}
}

func TestEnsureRates(t *testing.T) {
	ctx := context.Background()

	t.Run("stored_table_skips_feed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		feed := &fakeFeed{}
		svc := NewRateService(db, feed, []string{"USD"})
		testutil.CreateTestRates(t, db, "2024-06-01", map[string]string{"USD": "1.08"})

		table, used, err := svc.EnsureRates(ctx, "2024-06-01")
		testutil.AssertNoError(t, err)
		if used != "2024-06-01" {
			t.Errorf("expected same-day table, got %s", used)
		}
		testutil.AssertDecimal(t, table["USD"], "1.08")
		if len(feed.calls) != 0 {
			t.Errorf("expected no feed calls, got %v", feed.calls)
		}
	})

	t.Run("fetches_and_stores_missing_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		feed := &fakeFeed{tables: map[string]fx.Table{"2024-06-03": {"USD": testutil.Dec("1.07")}}}
		svc := NewRateService(db, feed, []string{"USD"})

		_, used, err := svc.EnsureRates(ctx, "2024-06-03")
		testutil.AssertNoError(t, err)
		if used != "2024-06-03" {
			t.Errorf("expected fetched day, got %s", used)
		}

		var row models.FxRate
		if err := db.Where("date = ? AND currency = ?", "2024-06-03", "USD").First(&row).Error; err != nil {
			t.Fatalf("expected fetched rate to be stored: %v", err)
		}
		if row.Source != RateSourceFeed {
			t.Errorf("expected source %s, got %s", RateSourceFeed, row.Source)
		}

		_, _, err = svc.EnsureRates(ctx, "2024-06-03")
		testutil.AssertNoError(t, err)
		if len(feed.calls) != 1 {
			t.Errorf("expected one feed call, got %d", len(feed.calls))
		}
	})

	t.Run("falls_back_to_earlier_table", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		feed := &fakeFeed{err: errors.New("feed down")}
		svc := NewRateService(db, feed, []string{"USD"})
		testutil.CreateTestRates(t, db, "2024-05-31", map[string]string{"USD": "1.06"})
		testutil.CreateTestRates(t, db, "2024-06-10", map[string]string{"USD": "1.10"})

		table, used, err := svc.EnsureRates(ctx, "2024-06-08")
		testutil.AssertNoError(t, err)
		if used != "2024-05-31" {
			t.Errorf("expected the on-or-before table, got %s", used)
		}
		testutil.AssertDecimal(t, table["USD"], "1.06")
	})

	t.Run("partial_feed_table_keeps_earlier_currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		feed := &fakeFeed{tables: map[string]fx.Table{"2024-06-10": {"USD": testutil.Dec("1.08")}}}
		svc := NewRateService(db, feed, []string{"USD", "GBP"})
		testutil.CreateTestRates(t, db, "2024-06-09", map[string]string{"GBP": "0.85", "USD": "1.07"})

		table, used, err := svc.EnsureRates(ctx, "2024-06-10")
		testutil.AssertNoError(t, err)
		if used != "2024-06-10" {
			t.Errorf("expected the fetched day, got %s", used)
		}
		testutil.AssertDecimal(t, table["USD"], "1.08")
		testutil.AssertDecimal(t, table["GBP"], "0.85")

		var stored int64
		db.Model(&models.FxRate{}).Where("date = ? AND currency = ?", "2024-06-10", "GBP").Count(&stored)
		if stored != 0 {
			t.Error("expected the carried GBP rate not to be stored under the new day")
		}
	})

	t.Run("stored_partial_day_refetches_missing_currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		feed := &fakeFeed{tables: map[string]fx.Table{"2024-06-10": {"GBP": testutil.Dec("0.86")}}}
		svc := NewRateService(db, feed, []string{"USD", "GBP"})
		testutil.CreateTestRates(t, db, "2024-06-10", map[string]string{"USD": "1.08"})

		table, _, err := svc.EnsureRates(ctx, "2024-06-10")
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, table["GBP"], "0.86")
		if len(feed.requested) != 1 || len(feed.requested[0]) != 1 || feed.requested[0][0] != "GBP" {
			t.Errorf("expected only GBP to be requested, got %v", feed.requested)
		}

		_, _, err = svc.EnsureRates(ctx, "2024-06-10")
		testutil.AssertNoError(t, err)
		if len(feed.calls) != 1 {
			t.Errorf("expected a complete day to skip the feed, got %d calls", len(feed.calls))
		}
	})

	t.Run("feed_error_without_fallback", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRateService(db, &fakeFeed{err: errors.New("feed down")}, []string{"USD"})

		_, _, err := svc.EnsureRates(ctx, "2024-06-08")
		testutil.AssertAppError(t, err, "RATES_FEED_FAILED")
	})

	t.Run("no_feed_no_rates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRateService(db, nil, nil)

		_, _, err := svc.EnsureRates(ctx, "2024-06-08")
		testutil.AssertAppError(t, err, "RATES_NOT_FOUND")
	})

	t.Run("invalid_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRateService(db, nil, nil)

		_, _, err := svc.EnsureRates(ctx, "June 8")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
