package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"crocus/internal/config"
	"crocus/internal/fx"
)

// testToday is the fixed "today" of job and matcher tests.
const testToday = "2024-06-15"

func testClock() time.Time {
	t, _ := time.Parse("2006-01-02", testToday)
	return t.Add(10 * time.Hour)
}

// stack wires every service over one test database.
type stack struct {
	db          *gorm.DB
	accounts    AccountServicer
	categories  CategoryServicer
	rates       RateServicer
	ledger      LedgerServicer
	bookings    BookingSource
	allocations AllocationServicer
	matcher     ReconciliationServicer
	imports     ImportServicer
	jobs        JobServicer
	caches      CacheServicer
}

func newStack(t *testing.T, db *gorm.DB, feed RateFeed) *stack {
	t.Helper()

	rules := config.DefaultRules()
	s := &stack{db: db}
	s.accounts = NewAccountService(db)
	s.categories = NewCategoryService(db, rules.SystemCategories)
	s.rates = NewRateService(db, feed, []string{"USD", "GBP"})
	s.ledger = NewLedgerService(db, s.accounts, s.rates)
	s.bookings = NewBookingSource(db)
	s.allocations = NewAllocationService(db, s.ledger, s.bookings)
	s.matcher = NewReconciliationService(db, s.ledger, s.rates)
	s.imports = NewImportService(db, s.accounts, s.categories, s.rates, s.matcher, rules.PaymentKeywords)
	s.jobs = NewJobService(db, s.ledger, s.rates, s.bookings, rules, testClock)
	s.caches = NewCacheService(db)
	return s
}

// fakeFeed serves fixed tables and records the days and currencies it
// was asked for. A requested currency its table lacks fails like a feed
// error for that currency alone.
type fakeFeed struct {
	tables    map[string]fx.Table
	err       error
	calls     []string
	requested [][]string
}

func (f *fakeFeed) FetchTable(_ context.Context, day string, currencies []string) (fx.Table, error) {
	f.calls = append(f.calls, day)
	f.requested = append(f.requested, currencies)
	if f.err != nil {
		return nil, f.err
	}

	out := make(fx.Table, len(currencies))
	var missing []string
	for _, c := range currencies {
		if r, ok := f.tables[day][c]; ok {
			out[c] = r
			continue
		}
		missing = append(missing, c)
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("no quote for %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func strPtr(s string) *string {
	return &s
}
