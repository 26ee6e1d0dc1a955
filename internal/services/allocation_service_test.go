package services

import (
	"testing"

	"crocus/internal/models"
	"crocus/internal/testutil"
)

func TestUpsertAllocations(t *testing.T) {
	t.Run("replaces_the_order_set", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)
		account := testutil.CreateTestAccount(t, db, "EUR")
		tx := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusActual, "900.00", "2024-06-01")
		b1 := testutil.CreateTestBooking(t, db, "600", "400", "2024-05-01")
		b2 := testutil.CreateTestBooking(t, db, "300", "200", "2024-05-02")

		allocations := []AllocationInput{
			{BookingID: b1.ID, BaseAmount: testutil.Dec("600")},
			{BookingID: b2.ID, BaseAmount: testutil.Dec("300")},
		}
		orders, err := s.allocations.UpsertAllocations(tx.ID, allocations)
		testutil.AssertNoError(t, err)
		if len(orders) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(orders))
		}
		for _, o := range orders {
			if o.Status != models.TransactionStatusActual || o.Side != models.SideIncome || o.AccountID != account.ID {
				t.Errorf("expected order to mirror its transaction, got %+v", o)
			}
		}

		// Same input again: same set, nothing accumulates.
		_, err = s.allocations.UpsertAllocations(tx.ID, allocations)
		testutil.AssertNoError(t, err)

		var count int64
		db.Model(&models.Order{}).Where("transaction_id = ?", tx.ID).Count(&count)
		if count != 2 {
			t.Errorf("expected 2 orders after re-upsert, got %d", count)
		}

		// Empty list clears.
		orders, err = s.allocations.UpsertAllocations(tx.ID, nil)
		testutil.AssertNoError(t, err)
		if len(orders) != 0 {
			t.Errorf("expected no orders, got %d", len(orders))
		}
		db.Model(&models.Order{}).Where("transaction_id = ?", tx.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected orders to be cleared, got %d", count)
		}
	})

	t.Run("invalid_input_keeps_existing_orders", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)
		account := testutil.CreateTestAccount(t, db, "EUR")
		tx := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusActual, "100.00", "2024-06-01")
		booking := testutil.CreateTestBooking(t, db, "100", "80", "2024-05-01")

		_, err := s.allocations.UpsertAllocations(tx.ID, []AllocationInput{{BookingID: booking.ID, BaseAmount: testutil.Dec("100")}})
		testutil.AssertNoError(t, err)

		tests := []struct {
			name        string
			allocations []AllocationInput
			code        string
		}{
			{"unknown_booking", []AllocationInput{{BookingID: "nope", BaseAmount: testutil.Dec("10")}}, "BOOKING_NOT_FOUND"},
			{"zero_amount", []AllocationInput{{BookingID: booking.ID, BaseAmount: testutil.Dec("0")}}, "INVALID_INPUT"},
			{"duplicate_booking", []AllocationInput{
				{BookingID: booking.ID, BaseAmount: testutil.Dec("10")},
				{BookingID: booking.ID, BaseAmount: testutil.Dec("20")},
			}, "INVALID_INPUT"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.allocations.UpsertAllocations(tx.ID, tt.allocations)
				testutil.AssertAppError(t, err, tt.code)

				orders, err := s.allocations.GetAllocations(tx.ID)
				testutil.AssertNoError(t, err)
				if len(orders) != 1 {
					t.Errorf("expected the original order to survive, got %d", len(orders))
				}
			})
		}
	})

	t.Run("transaction_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)

		_, err := s.allocations.UpsertAllocations("missing", nil)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestBookingRemainder(t *testing.T) {
	t.Run("only_done_orders_count", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)
		account := testutil.CreateTestAccount(t, db, "EUR")
		booking := testutil.CreateTestBooking(t, db, "1000", "700", "2024-05-01")

		income := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusActual, "600.00", "2024-05-10")
		expense := testutil.CreateTestTransaction(t, db, account, models.MovementOut, models.TransactionStatusReconciled, "350.00", "2024-05-11")
		planned := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusPlanned, "400.00", "2024-07-01")

		for _, a := range []struct {
			tx     *models.Transaction
			amount string
		}{{income, "600"}, {expense, "350"}, {planned, "400"}} {
			_, err := s.allocations.UpsertAllocations(a.tx.ID, []AllocationInput{{BookingID: booking.ID, BaseAmount: testutil.Dec(a.amount)}})
			testutil.AssertNoError(t, err)
		}

		r, err := s.allocations.BookingRemainder(booking.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, r.DoneIncome, "600")
		testutil.AssertDecimal(t, r.DoneExpense, "350")
		testutil.AssertDecimal(t, r.LeftIncome, "400")
		testutil.AssertDecimal(t, r.LeftExpense, "350")
	})

	t.Run("never_negative", func(t *testing.T) {
		booking := &models.Booking{ID: "b", Brutto: testutil.Dec("100"), InternalNet: testutil.Dec("50")}
		orders := []models.Order{
			{BookingID: "b", Side: models.SideIncome, Status: models.TransactionStatusActual, BaseAmount: testutil.Dec("150")},
			{BookingID: "b", Side: models.SideExpense, Status: models.TransactionStatusReconciled, BaseAmount: testutil.Dec("60")},
			{BookingID: "other", Side: models.SideExpense, Status: models.TransactionStatusActual, BaseAmount: testutil.Dec("10")},
		}

		r := ComputeRemainder(booking, orders)
		testutil.AssertDecimal(t, r.LeftIncome, "0")
		testutil.AssertDecimal(t, r.LeftExpense, "0")
		testutil.AssertDecimal(t, r.DoneExpense, "60")
	})

	t.Run("booking_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		s := newStack(t, db, nil)

		_, err := s.allocations.BookingRemainder("missing")
		testutil.AssertAppError(t, err, "BOOKING_NOT_FOUND")
	})
}

func TestStatusChangesReachOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := newStack(t, db, nil)
	account := testutil.CreateTestAccount(t, db, "EUR")
	booking := testutil.CreateTestBooking(t, db, "500", "300", "2024-05-01")
	planned := testutil.CreateTestTransaction(t, db, account, models.MovementIn, models.TransactionStatusPlanned, "500.00", "2024-06-01")

	_, err := s.allocations.UpsertAllocations(planned.ID, []AllocationInput{{BookingID: booking.ID, BaseAmount: testutil.Dec("500")}})
	testutil.AssertNoError(t, err)

	r, err := s.allocations.BookingRemainder(booking.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, r.LeftIncome, "500")

	_, err = s.ledger.MarkActual(planned.ID, "2024-06-02")
	testutil.AssertNoError(t, err)

	r, err = s.allocations.BookingRemainder(booking.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, r.LeftIncome, "0")

	// Removing the transaction removes its orders with it.
	testutil.AssertNoError(t, s.ledger.RemoveTransaction(planned.ID))
	var count int64
	db.Model(&models.Order{}).Where("transaction_id = ?", planned.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected orders to be deleted with the transaction, got %d", count)
	}
}
