package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPlanned    TransactionStatus = "planned"
	TransactionStatusActual     TransactionStatus = "actual"
	TransactionStatusReconciled TransactionStatus = "reconciled"
)

// Done reports whether money has actually moved.
func (s TransactionStatus) Done() bool {
	return s == TransactionStatusActual || s == TransactionStatusReconciled
}

// MovementKind is the direction of a money movement.
type MovementKind string

const (
	MovementIn       MovementKind = "in"
	MovementOut      MovementKind = "out"
	MovementTransfer MovementKind = "transfer"
)

// Side is the P&L side of a movement. Transfers have no side.
type Side string

const (
	SideIncome  Side = "income"
	SideExpense Side = "expense"
	SideNone    Side = ""
)

// SideForKind derives the side of an in/out movement.
func SideForKind(kind MovementKind) Side {
	switch kind {
	case MovementIn:
		return SideIncome
	case MovementOut:
		return SideExpense
	default:
		return SideNone
	}
}

// PaymentMethod is a best-effort guess of how money moved.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentIBAN PaymentMethod = "iban"
	PaymentCash PaymentMethod = "cash"
	PaymentBank PaymentMethod = "bank"
)

// OwnerAmounts maps an owner id to an amount in the pivot currency.
type OwnerAmounts map[string]decimal.Decimal

// Transaction is a ledger entry. Amount is always a non-negative magnitude
// and BaseAmount is recomputed from Amount at every write.
type Transaction struct {
	Record
	Date       string            `gorm:"type:varchar(10);not null;index" json:"date"`
	DueDate    *string           `gorm:"type:varchar(10);index" json:"due_date,omitempty"`
	ActualDate *string           `gorm:"type:varchar(10)" json:"actual_date,omitempty"`
	Status     TransactionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Kind       MovementKind      `gorm:"type:varchar(16);not null" json:"kind"`
	Side       Side              `gorm:"type:varchar(16)" json:"side"`

	Amount     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency   string          `gorm:"type:varchar(3);not null" json:"currency"`
	BaseAmount decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"base_amount"`

	AccountID   string           `gorm:"type:uuid;not null;index" json:"account_id"`
	ToAccountID *string          `gorm:"type:uuid" json:"to_account_id,omitempty"`
	ToAmount    *decimal.Decimal `gorm:"type:numeric(18,2)" json:"to_amount,omitempty"`

	CategoryID     *string `gorm:"type:uuid" json:"category_id,omitempty"`
	CounterpartyID *string `gorm:"type:uuid" json:"counterparty_id,omitempty"`
	Note           string  `json:"note,omitempty"`
	Description    string  `json:"description,omitempty"`

	PaymentMethod  PaymentMethod `gorm:"type:varchar(16)" json:"payment_method,omitempty"`
	Fingerprint    *string       `json:"fingerprint,omitempty"`
	FingerprintKey *string       `gorm:"type:varchar(64);uniqueIndex:idx_transactions_fingerprint_key,where:fingerprint_key IS NOT NULL" json:"-"`
	ImportBatchID  *string       `gorm:"type:uuid;index" json:"import_batch_id,omitempty"`

	MatchedPlannedID *string `gorm:"type:uuid" json:"matched_planned_id,omitempty"`
	MatchedTxID      *string `gorm:"type:uuid" json:"matched_tx_id,omitempty"`

	// Owner attribution for movements outside the booking flow.
	OwnerSplits datatypes.JSONType[OwnerAmounts] `json:"owner_splits"`
	OwnerTag    *string                          `json:"owner_tag,omitempty"`

	Category     *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Counterparty *Counterparty `gorm:"foreignKey:CounterpartyID" json:"counterparty,omitempty"`
}

// PlannedDate is the target date of a planned entry: due date, else date.
func (t *Transaction) PlannedDate() string {
	if t.DueDate != nil && *t.DueDate != "" {
		return *t.DueDate
	}
	return t.Date
}

// EffectiveDate is the date money moved: actual date, else date.
func (t *Transaction) EffectiveDate() string {
	if t.ActualDate != nil && *t.ActualDate != "" {
		return *t.ActualDate
	}
	return t.Date
}

// Planned is the legacy standalone planned-entry record. It predates the
// planned status on Transaction and is still read by the aggregation jobs.
type Planned struct {
	Record
	AccountID   string          `gorm:"type:uuid;not null;index" json:"account_id"`
	Date        string          `gorm:"type:varchar(10);index" json:"date"`
	DueDate     *string         `gorm:"type:varchar(10);index" json:"due_date,omitempty"`
	Side        Side            `gorm:"type:varchar(16);not null" json:"side"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`
	BaseAmount  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"base_amount"`
	CategoryID  *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	Note        string          `json:"note,omitempty"`
	MatchedTxID *string         `gorm:"type:uuid" json:"matched_tx_id,omitempty"`
}

// TableName keeps the legacy collection name.
func (Planned) TableName() string {
	return "planned"
}

// PlannedDate is the target date: due date, else date.
func (p *Planned) PlannedDate() string {
	if p.DueDate != nil && *p.DueDate != "" {
		return *p.DueDate
	}
	return p.Date
}

// Order allocates part of a transaction's base amount to a booking.
type Order struct {
	Record
	TransactionID string            `gorm:"type:uuid;not null;index" json:"transaction_id"`
	BookingID     string            `gorm:"not null;index" json:"booking_id"`
	Date          string            `gorm:"type:varchar(10);not null" json:"date"`
	Side          Side              `gorm:"type:varchar(16)" json:"side"`
	Status        TransactionStatus `gorm:"type:varchar(16);not null" json:"status"`
	BaseAmount    decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"base_amount"`

	// Denormalized from the parent for display.
	AccountID string          `gorm:"type:uuid" json:"account_id"`
	Currency  string          `gorm:"type:varchar(3)" json:"currency"`
	Amount    decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
}

// ImportBatch records one statement import run.
type ImportBatch struct {
	Base
	AccountID  string `gorm:"type:uuid;not null;index" json:"account_id"`
	Source     string `json:"source"`
	Imported   int    `json:"imported"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
	Reconciled int    `json:"reconciled"`
	RolledBack bool   `gorm:"not null;default:false" json:"rolled_back"`
}
