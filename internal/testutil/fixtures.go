package testutil

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"crocus/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestAccount creates an account in the given currency with a zero
// opening balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, currency string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, currency, "0")
}

// CreateTestAccountWithBalance creates an account with the given opening balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, currency, opening string) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:           fmt.Sprintf("Account %d", nextID()),
		Currency:       currency,
		OpeningBalance: Dec(opening),
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates an operator category.
func CreateTestCategory(t *testing.T, db *gorm.DB, name string, side models.CategorySide) *models.Category {
	t.Helper()

	category := &models.Category{Name: name, Side: side}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestCounterparty creates a counterparty with the given name.
func CreateTestCounterparty(t *testing.T, db *gorm.DB, name string) *models.Counterparty {
	t.Helper()

	counterparty := &models.Counterparty{Name: name}
	if err := db.Create(counterparty).Error; err != nil {
		t.Fatalf("failed to create test counterparty: %v", err)
	}
	return counterparty
}

// CreateTestTransaction inserts an in/out transaction directly, bypassing
// the ledger service. The amount is in the account's currency and is also
// used as the base amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, account *models.Account, kind models.MovementKind,
	status models.TransactionStatus, amount, date string) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		Date:        date,
		Status:      status,
		Kind:        kind,
		Side:        models.SideForKind(kind),
		Amount:      Dec(amount),
		Currency:    account.Currency,
		BaseAmount:  Dec(amount),
		AccountID:   account.ID,
		OwnerSplits: datatypes.NewJSONType(models.OwnerAmounts(nil)),
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestPlanned inserts a legacy planned record in the account's
// currency. dueDate may be empty.
func CreateTestPlanned(t *testing.T, db *gorm.DB, account *models.Account, side models.Side,
	amount, date, dueDate string) *models.Planned {
	t.Helper()

	planned := &models.Planned{
		AccountID:  account.ID,
		Date:       date,
		Side:       side,
		Amount:     Dec(amount),
		Currency:   account.Currency,
		BaseAmount: Dec(amount),
	}
	if dueDate != "" {
		planned.DueDate = &dueDate
	}
	if err := db.Create(planned).Error; err != nil {
		t.Fatalf("failed to create test planned entry: %v", err)
	}
	return planned
}

// CreateTestBooking inserts a booking of the default type.
func CreateTestBooking(t *testing.T, db *gorm.DB, brutto, net, createdDate string) *models.Booking {
	t.Helper()

	booking := &models.Booking{
		ID:          fmt.Sprintf("BK-%d", nextID()),
		Brutto:      Dec(brutto),
		InternalNet: Dec(net),
		Operator:    "Operator",
		CreatedDate: createdDate,
	}
	if err := db.Create(booking).Error; err != nil {
		t.Fatalf("failed to create test booking: %v", err)
	}
	return booking
}

// CreateTestRates publishes a rate table for a day. Rates are units of
// the currency per one EUR.
func CreateTestRates(t *testing.T, db *gorm.DB, day string, rates map[string]string) {
	t.Helper()

	for ccy, rate := range rates {
		row := &models.FxRate{Date: day, Currency: ccy, Rate: Dec(rate), Source: "test"}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to create test rate: %v", err)
		}
	}
}

// OwnerJSON encodes an owner amount table for booking split columns.
func OwnerJSON(t *testing.T, amounts map[string]string) datatypes.JSON {
	t.Helper()

	out := make(map[string]decimal.Decimal, len(amounts))
	for id, v := range amounts {
		out[id] = Dec(v)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("failed to encode owner amounts: %v", err)
	}
	return datatypes.JSON(raw)
}
