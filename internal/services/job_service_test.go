package services

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"gorm.io/gorm"

	"crocus/internal/models"
	"crocus/internal/testutil"
)

// documentBytes returns the stored payload of a cache document.
func documentBytes(t *testing.T, db *gorm.DB, name string) []byte {
	t.Helper()
	var doc models.CacheDocument
	if err := db.Where("name = ?", name).First(&doc).Error; err != nil {
		t.Fatalf("failed to load cache document %s: %v", name, err)
	}
	return []byte(doc.Payload)
}

func marshalRows(t *testing.T, rows interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("failed to marshal rows: %v", err)
	}
	return b
}

func dailyByDate(rows []models.AccountDaily) map[string]models.AccountDaily {
	out := make(map[string]models.AccountDaily, len(rows))
	for _, r := range rows {
		out[r.Date] = r
	}
	return out
}

func TestAccountDailyJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := newStack(t, db, nil)
	account := testutil.CreateTestAccount(t, db, "EUR")
	other := testutil.CreateTestAccount(t, db, "EUR")
	ctx := context.Background()

	testutil.CreateTestPlanned(t, db, account, models.SideIncome, "100.00", "2024-05-01", "2024-06-10")
	testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusPlanned, "50.00", "2024-06-20")
	matched := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusPlanned, "70.00", "2024-06-12")
	db.Model(matched).Update("matched_tx_id", "some-actual")

	income := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusActual, "200.00", "2024-06-14")
	late := testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusReconciled, "30.00", "2024-06-01")
	db.Model(late).Update("actual_date", "2024-06-16")
	transfer := testutil.CreateTestTransaction(t, db, account, models.MovementTransfer, models.TransactionStatusActual, "500.00", "2024-06-14")
	db.Model(transfer).Update("to_account_id", other.ID)

	window := JobWindow{From: "2024-06-01", To: "2024-06-30"}
	testutil.AssertNoError(t, s.jobs.AccountDaily(ctx, window))

	rows, err := s.caches.AccountDaily("2024-06-01", "2024-06-30")
	testutil.AssertNoError(t, err)
	if len(rows) != 30 {
		t.Fatalf("expected a row for every day, got %d", len(rows))
	}
	byDate := dailyByDate(rows)

	testutil.AssertDecimal(t, byDate["2024-06-10"].PlannedIncome, "100")
	testutil.AssertDecimal(t, byDate["2024-06-10"].OverdueIncome, "100")
	testutil.AssertDecimal(t, byDate["2024-06-12"].PlannedIncome, "70")
	testutil.AssertDecimal(t, byDate["2024-06-12"].MatchedIncome, "70")
	testutil.AssertDecimal(t, byDate["2024-06-12"].OverdueIncome, "0")
	testutil.AssertDecimal(t, byDate["2024-06-20"].PlannedExpense, "50")
	testutil.AssertDecimal(t, byDate["2024-06-20"].OverdueExpense, "0")
	testutil.AssertDecimal(t, byDate["2024-06-14"].ActualIncome, "200")
	testutil.AssertDecimal(t, byDate["2024-06-16"].ActualExpense, "30")
	testutil.AssertDecimal(t, byDate["2024-06-01"].ActualExpense, "0")

	status, err := s.jobs.Status(JobAccountDaily)
	testutil.AssertNoError(t, err)
	if status.State != models.JobDone || status.From != "2024-06-01" || status.To != "2024-06-30" {
		t.Errorf("unexpected status %+v", status)
	}
	if status.FinishedAt == nil {
		t.Error("expected finished time")
	}

	t.Run("idempotent", func(t *testing.T) {
		testutil.AssertNoError(t, s.jobs.AccountDaily(ctx, window))
		again, err := s.caches.AccountDaily("2024-06-01", "2024-06-30")
		testutil.AssertNoError(t, err)
		if len(again) != len(rows) {
			t.Fatalf("expected %d rows, got %d", len(rows), len(again))
		}
		for i := range rows {
			if !again[i].ActualIncome.Equal(rows[i].ActualIncome) || !again[i].PlannedIncome.Equal(rows[i].PlannedIncome) {
				t.Errorf("row %s changed on re-run", rows[i].Date)
			}
		}
	})

	t.Run("zeroes_after_deletion", func(t *testing.T) {
		testutil.AssertNoError(t, s.ledger.RemoveTransaction(income.ID))
		testutil.AssertNoError(t, s.jobs.AccountDaily(ctx, window))

		rows, err := s.caches.AccountDaily("2024-06-14", "2024-06-14")
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, rows[0].ActualIncome, "0")
	})

	t.Run("invalid_window", func(t *testing.T) {
		err := s.jobs.AccountDaily(ctx, JobWindow{From: "2024-06-30", To: "2024-06-01"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestPnLMonthlyJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := newStack(t, db, nil)
	account := testutil.CreateTestAccount(t, db, "EUR")
	usd := testutil.CreateTestAccount(t, db, "USD")
	other := testutil.CreateTestAccount(t, db, "EUR")
	ctx := context.Background()

	revenue := testutil.CreateTestCategory(t, db, "Client payment", models.CategorySideIncome)
	operators := testutil.CreateTestCategory(t, db, "Operator payments", models.CategorySideExpense)
	rent := testutil.CreateTestCategory(t, db, "Office rent", models.CategorySideExpense)

	categorized := func(acc *models.Account, kind models.MovementKind, amount, date string, category *models.Category) *models.Transaction {
		tx := testutil.CreateTestTransaction(t, db, acc, kind, models.TransactionStatusActual, amount, date)
		if category != nil {
			db.Model(tx).Update("category_id", category.ID)
		}
		return tx
	}

	sale := categorized(account, models.MovementIn, "1000.00", "2024-03-02", revenue)
	categorized(account, models.MovementOut, "600.00", "2024-03-05", operators)
	categorized(account, models.MovementIn, "50.00", "2024-03-06", operators)
	categorized(account, models.MovementOut, "100.00", "2024-03-28", rent)
	categorized(account, models.MovementOut, "20.00", "2024-03-10", nil)
	transfer := categorized(account, models.MovementTransfer, "300.00", "2024-03-11", rent)
	db.Model(transfer).Update("to_account_id", other.ID)
	noRate := categorized(usd, models.MovementOut, "10.00", "2024-03-12", rent)
	db.Model(noRate).Update("base_amount", "0")
	categorized(account, models.MovementIn, "999.00", "2024-04-02", revenue)

	testutil.AssertNoError(t, s.jobs.PnLMonthly(ctx, JobWindow{From: "2024-03-10", To: "2024-03-20"}))

	rows, err := s.caches.PnLMonthly("2024-01", "2024-12")
	testutil.AssertNoError(t, err)
	if len(rows) != 1 {
		t.Fatalf("expected only March to be written, got %d rows", len(rows))
	}
	march := rows[0]
	testutil.AssertDecimal(t, march.Revenue, "1000")
	testutil.AssertDecimal(t, march.Cogs, "550")
	testutil.AssertDecimal(t, march.Opex, "100")
	testutil.AssertDecimal(t, march.Gross, "450")
	testutil.AssertDecimal(t, march.Net, "350")

	status, err := s.jobs.Status(JobPnLMonthly)
	testutil.AssertNoError(t, err)
	if status.From != "2024-03-01" || status.To != "2024-03-31" {
		t.Errorf("expected whole-month range, got %s..%s", status.From, status.To)
	}
	var diag PnLDiagnostics
	if err := json.Unmarshal(status.Diagnostics, &diag); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if diag.Included != 4 {
		t.Errorf("expected 4 included, got %d", diag.Included)
	}
	for reason, want := range map[string]int{ExcludedNoCategory: 1, ExcludedTransfer: 1, ExcludedNoRate: 1} {
		if diag.Excluded[reason] != want {
			t.Errorf("expected %d excluded for %s, got %d", want, reason, diag.Excluded[reason])
		}
	}

	window := JobWindow{From: "2024-03-10", To: "2024-03-20"}

	t.Run("idempotent", func(t *testing.T) {
		before := marshalRows(t, rows)
		testutil.AssertNoError(t, s.jobs.PnLMonthly(ctx, window))
		again, err := s.caches.PnLMonthly("2024-01", "2024-12")
		testutil.AssertNoError(t, err)
		if after := marshalRows(t, again); !bytes.Equal(before, after) {
			t.Errorf("re-run changed the cache:\n%s\n%s", before, after)
		}
	})

	t.Run("zeroes_after_deletion", func(t *testing.T) {
		testutil.AssertNoError(t, s.ledger.RemoveTransaction(sale.ID))
		testutil.AssertNoError(t, s.jobs.PnLMonthly(ctx, window))

		rows, err := s.caches.PnLMonthly("2024-03", "2024-03")
		testutil.AssertNoError(t, err)
		if len(rows) != 1 {
			t.Fatalf("expected the March row to be rewritten, got %d rows", len(rows))
		}
		testutil.AssertDecimal(t, rows[0].Revenue, "0")
		testutil.AssertDecimal(t, rows[0].Gross, "-550")
		testutil.AssertDecimal(t, rows[0].Net, "-650")
	})

	t.Run("default_window_is_year_to_date", func(t *testing.T) {
		testutil.AssertNoError(t, s.jobs.PnLMonthly(ctx, JobWindow{}))
		rows, err := s.caches.PnLMonthly("2024-01", "2024-12")
		testutil.AssertNoError(t, err)
		if len(rows) != 6 {
			t.Fatalf("expected January to June, got %d rows", len(rows))
		}
		testutil.AssertDecimal(t, rows[3].Revenue, "999")
		testutil.AssertDecimal(t, rows[0].Net, "0")
	})
}

func TestSalesDashboardJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := newStack(t, db, nil)
	ctx := context.Background()

	first := testutil.CreateTestBooking(t, db, "1000", "700", "2024-06-01")
	db.Model(first).Updates(map[string]interface{}{"check_in_date": "2024-07-01", "operator": "Alpha", "base_owner": "A"})
	second := testutil.CreateTestBooking(t, db, "500", "400", "2024-06-01")
	db.Model(second).Updates(map[string]interface{}{"operator": "Beta", "type": "group"})

	testutil.AssertNoError(t, s.jobs.SalesDashboard(ctx))

	created, err := s.caches.SalesDaily(models.BasisCreated, "", "")
	testutil.AssertNoError(t, err)
	if len(created) != 1 {
		t.Fatalf("expected one created-date row, got %d", len(created))
	}
	if created[0].Bookings != 2 {
		t.Errorf("expected 2 bookings, got %d", created[0].Bookings)
	}
	testutil.AssertDecimal(t, created[0].Brutto, "1500")
	owners := created[0].Owners.Data()
	testutil.AssertDecimal(t, owners["A"], "350")
	testutil.AssertDecimal(t, owners["B"], "50")

	checkin, err := s.caches.SalesDaily(models.BasisCheckIn, "", "")
	testutil.AssertNoError(t, err)
	if len(checkin) != 1 || checkin[0].Date != "2024-07-01" {
		t.Fatalf("expected one check-in row on 2024-07-01, got %+v", checkin)
	}

	byOperator, err := s.caches.SalesDailyByOperator(models.BasisCreated, "", "", "")
	testutil.AssertNoError(t, err)
	if len(byOperator) != 2 || byOperator[0].Operator != "Alpha" || byOperator[1].Operator != "Beta" {
		t.Fatalf("expected Alpha and Beta rows, got %+v", byOperator)
	}

	t.Run("rebuild_drops_deleted_bookings", func(t *testing.T) {
		db.Delete(&models.Booking{}, "id = ?", second.ID)
		testutil.AssertNoError(t, s.jobs.SalesDashboard(ctx))

		created, err := s.caches.SalesDaily(models.BasisCreated, "", "")
		testutil.AssertNoError(t, err)
		if created[0].Bookings != 1 {
			t.Errorf("expected 1 booking after rebuild, got %d", created[0].Bookings)
		}
		beta, err := s.caches.SalesDailyByOperator(models.BasisCreated, "", "", "Beta")
		testutil.AssertNoError(t, err)
		if len(beta) != 0 {
			t.Errorf("expected Beta rows to be gone, got %d", len(beta))
		}
	})
}

func TestFoundersJob(t *testing.T) {
	t.Run("booking_scaled_by_completion", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)
		ctx := context.Background()
		account := testutil.CreateTestAccount(t, db, "EUR")

		booking := testutil.CreateTestBooking(t, db, "1000", "700", "2024-05-01")
		db.Model(booking).Update("base_owner", "A")

		income := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusActual, "600.00", "2024-05-10")
		expense := testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusActual, "350.00", "2024-05-11")
		_, err := s.allocations.UpsertAllocations(income.ID, []AllocationInput{{BookingID: booking.ID, BaseAmount: testutil.Dec("600")}})
		testutil.AssertNoError(t, err)
		_, err = s.allocations.UpsertAllocations(expense.ID, []AllocationInput{{BookingID: booking.ID, BaseAmount: testutil.Dec("350")}})
		testutil.AssertNoError(t, err)

		remainder, err := s.allocations.BookingRemainder(booking.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, remainder.LeftIncome, "400")
		testutil.AssertDecimal(t, remainder.LeftExpense, "350")

		testutil.AssertNoError(t, s.jobs.Founders(ctx))

		payload, err := s.caches.Founders()
		testutil.AssertNoError(t, err)
		if len(payload.Movements) != 1 {
			t.Fatalf("expected one movement, got %+v", payload.Movements)
		}
		m := payload.Movements[0]
		if m.OwnerID != "A" || m.Source != models.OwnerMovementBooking || m.Rule != SplitBaseOwner {
			t.Errorf("unexpected movement %+v", m)
		}
		testutil.AssertDecimal(t, m.Amount, "150")
		testutil.AssertDecimal(t, payload.Totals["A"], "150")
		testutil.AssertDecimal(t, payload.Totals["B"], "0")
		if len(payload.Issues) != 0 {
			t.Errorf("expected no issues, got %v", payload.Issues)
		}

		before := documentBytes(t, db, DocumentFounders)
		testutil.AssertNoError(t, s.jobs.Founders(ctx))
		if after := documentBytes(t, db, DocumentFounders); !bytes.Equal(before, after) {
			t.Errorf("re-run changed the founders document:\n%s\n%s", before, after)
		}
	})

	t.Run("owner_movements_from_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)
		ctx := context.Background()
		account := testutil.CreateTestAccount(t, db, "EUR")

		payout := testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusActual, "80.00", "2024-05-02")
		db.Model(payout).Update("description", "Payout Owner B")

		contribution := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusActual, "500.00", "2024-05-03")
		db.Model(contribution).Update("owner_tag", "A")

		split := testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusActual, "100.00", "2024-05-04")
		db.Model(split).Updates(map[string]interface{}{
			"owner_splits": `{"A":"60","B":"40"}`,
			"owner_tag":    "B",
		})

		ghost := testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusActual, "5.00", "2024-05-05")
		db.Model(ghost).Update("owner_tag", "Z")

		testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusActual, "12.00", "2024-05-06")

		testutil.AssertNoError(t, s.jobs.Founders(ctx))
		payload, err := s.caches.Founders()
		testutil.AssertNoError(t, err)

		if len(payload.Movements) != 4 {
			t.Fatalf("expected 4 movements, got %+v", payload.Movements)
		}
		testutil.AssertDecimal(t, payload.Movements[0].Amount, "-80")
		if payload.Movements[0].OwnerID != "B" || payload.Movements[0].Rule != "text_heuristic" {
			t.Errorf("unexpected payout %+v", payload.Movements[0])
		}
		if payload.Movements[1].Rule != "owner_tag" {
			t.Errorf("expected owner tag rule, got %s", payload.Movements[1].Rule)
		}
		if payload.Movements[2].Rule != "explicit_split" || payload.Movements[3].Rule != "explicit_split" {
			t.Errorf("expected explicit split to beat the tag, got %s / %s", payload.Movements[2].Rule, payload.Movements[3].Rule)
		}
		testutil.AssertDecimal(t, payload.Totals["A"], "440")
		testutil.AssertDecimal(t, payload.Totals["B"], "-120")
		if len(payload.Issues) != 1 {
			t.Errorf("expected the unknown owner to be reported, got %v", payload.Issues)
		}
	})

	t.Run("orders_for_unknown_bookings_are_reported", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)
		account := testutil.CreateTestAccount(t, db, "EUR")
		tx := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusActual, "10.00", "2024-05-01")
		order := &models.Order{TransactionID: tx.ID, BookingID: "ghost", Date: tx.Date, Side: models.SideIncome,
			Status: tx.Status, BaseAmount: testutil.Dec("10")}
		db.Create(order)

		testutil.AssertNoError(t, s.jobs.Founders(context.Background()))
		payload, err := s.caches.Founders()
		testutil.AssertNoError(t, err)
		if len(payload.Issues) != 1 {
			t.Errorf("expected one issue, got %v", payload.Issues)
		}
	})
}

func TestOverviewJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := newStack(t, db, nil)
	ctx := context.Background()

	eur := testutil.CreateTestAccountWithBalance(t, db, "EUR", "1000")
	usd := testutil.CreateTestAccountWithBalance(t, db, "USD", "100")
	testutil.CreateTestRates(t, db, "2024-06-01", map[string]string{"USD": "1.25"})

	testutil.CreateTestTransaction(t, db, eur, models.MovementIn, models.TransactionStatusActual, "200.00", "2024-06-14")
	testutil.CreateTestTransaction(t, db, eur, models.MovementOut, models.TransactionStatusReconciled, "50.00", "2024-06-15")
	transfer := testutil.CreateTestTransaction(t, db, eur, models.MovementTransfer, models.TransactionStatusActual, "100.00", "2024-06-10")
	db.Model(transfer).Updates(map[string]interface{}{"to_account_id": usd.ID, "to_amount": "125"})

	upcoming := testutil.CreateTestPlanned(t, db, eur, models.SideIncome, "300.00", "2024-06-01", "2024-06-20")
	overdue := testutil.CreateTestTransaction(t, db, eur, models.MovementOut, models.TransactionStatusPlanned, "40.00", "2024-06-01")
	done := testutil.CreateTestTransaction(t, db, eur, models.MovementOut, models.TransactionStatusPlanned, "45.00", "2024-06-02")
	db.Model(done).Update("matched_tx_id", "some-actual")

	testutil.AssertNoError(t, s.jobs.Overview(ctx))
	payload, err := s.caches.Overview()
	testutil.AssertNoError(t, err)

	if payload.AsOf != testToday {
		t.Errorf("expected as-of %s, got %s", testToday, payload.AsOf)
	}

	balances := map[string]models.AccountBalance{}
	for _, b := range payload.Balances {
		balances[b.AccountID] = b
	}
	testutil.AssertDecimal(t, balances[eur.ID].Native, "1050")
	testutil.AssertDecimal(t, balances[eur.ID].Pivot, "1050")
	testutil.AssertDecimal(t, balances[usd.ID].Native, "225")
	testutil.AssertDecimal(t, balances[usd.ID].Pivot, "180")

	if len(payload.CashFlow) != 30 {
		t.Fatalf("expected 30 cash-flow days, got %d", len(payload.CashFlow))
	}
	last := payload.CashFlow[len(payload.CashFlow)-1]
	if last.Date != testToday {
		t.Errorf("expected cash flow to end today, got %s", last.Date)
	}
	testutil.AssertDecimal(t, last.Outflow, "50")
	testutil.AssertDecimal(t, payload.CashFlow[len(payload.CashFlow)-2].Inflow, "200")
	for _, d := range payload.CashFlow {
		if d.Date == "2024-06-10" && !d.Outflow.IsZero() {
			t.Error("transfers must not count as cash flow")
		}
	}

	if len(payload.Upcoming) != 1 || payload.Upcoming[0].ID != upcoming.ID {
		t.Errorf("expected the legacy entry as upcoming, got %+v", payload.Upcoming)
	}
	if len(payload.Overdue) != 1 || payload.Overdue[0].ID != overdue.ID {
		t.Errorf("expected one overdue entry, got %+v", payload.Overdue)
	}
	if len(payload.Recent) != 3 || payload.Recent[0].Date != "2024-06-15" {
		t.Errorf("expected 3 recent transactions newest first, got %+v", payload.Recent)
	}

	t.Run("idempotent", func(t *testing.T) {
		before := documentBytes(t, db, DocumentOverview)
		testutil.AssertNoError(t, s.jobs.Overview(ctx))
		if after := documentBytes(t, db, DocumentOverview); !bytes.Equal(before, after) {
			t.Errorf("re-run changed the overview document:\n%s\n%s", before, after)
		}
	})
}

func TestRunJobs(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)

		statuses, err := s.jobs.Run(context.Background(), JobAll, JobWindow{})
		testutil.AssertNoError(t, err)
		if len(statuses) != len(JobOrder) {
			t.Fatalf("expected %d statuses, got %d", len(JobOrder), len(statuses))
		}
		for i, st := range statuses {
			if st.Name != JobOrder[i] || st.State != models.JobDone {
				t.Errorf("unexpected status %+v", st)
			}
		}

		list, err := s.jobs.ListStatus()
		testutil.AssertNoError(t, err)
		if len(list) != len(JobOrder) {
			t.Errorf("expected %d stored statuses, got %d", len(JobOrder), len(list))
		}
	})

	t.Run("unknown", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)

		_, err := s.jobs.Run(context.Background(), "payroll", JobWindow{})
		testutil.AssertAppError(t, err, "UNKNOWN_JOB")
	})

	t.Run("not_run_yet", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)

		_, err := s.jobs.Status(JobFounders)
		testutil.AssertAppError(t, err, "NOT_FOUND")
	})

	t.Run("failure_is_recorded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)
		if err := db.Migrator().DropTable(&models.PnLMonthly{}); err != nil {
			t.Fatalf("failed to drop table: %v", err)
		}

		statuses, err := s.jobs.Run(context.Background(), JobPnLMonthly, JobWindow{})
		testutil.AssertAppError(t, err, "JOB_FAILED")
		if len(statuses) != 1 || statuses[0].State != models.JobError || statuses[0].Message == "" {
			t.Errorf("expected an error status with a message, got %+v", statuses)
		}
	})
}
