package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Cache rows are derived data. They carry no timestamps so that a rebuild
// over unchanged sources produces identical rows.

// AccountDaily is the global planned/actual cash picture for one day, in
// the pivot currency.
type AccountDaily struct {
	Date           string          `gorm:"type:varchar(10);primaryKey" json:"date"`
	PlannedIncome  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"planned_income"`
	PlannedExpense decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"planned_expense"`
	OverdueIncome  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"overdue_income"`
	OverdueExpense decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"overdue_expense"`
	MatchedIncome  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"matched_income"`
	MatchedExpense decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"matched_expense"`
	ActualIncome   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"actual_income"`
	ActualExpense  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"actual_expense"`
}

// TableName overrides the default table name.
func (AccountDaily) TableName() string {
	return "cache_account_daily"
}

// PnLMonthly is the profit and loss summary of one calendar month.
type PnLMonthly struct {
	Month   string          `gorm:"type:varchar(7);primaryKey" json:"month"`
	Revenue decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"revenue"`
	Cogs    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"cogs"`
	Opex    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"opex"`
	Gross   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"gross"`
	Net     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"net"`
}

// TableName overrides the default table name.
func (PnLMonthly) TableName() string {
	return "cache_pnl_monthly"
}

// DateBasis selects which booking date the sales dashboard buckets by.
type DateBasis string

const (
	BasisCreated DateBasis = "created"
	BasisCheckIn DateBasis = "checkin"
)

// SalesDaily is the booking volume of one day under one date basis.
type SalesDaily struct {
	Basis    DateBasis                        `gorm:"type:varchar(16);primaryKey" json:"basis"`
	Date     string                           `gorm:"type:varchar(10);primaryKey" json:"date"`
	Bookings int                              `gorm:"not null" json:"bookings"`
	Brutto   decimal.Decimal                  `gorm:"type:numeric(18,2);not null" json:"brutto"`
	Owners   datatypes.JSONType[OwnerAmounts] `json:"owners"`
}

// TableName overrides the default table name.
func (SalesDaily) TableName() string {
	return "cache_sales_daily"
}

// SalesDailyOperator is SalesDaily broken down by operator.
type SalesDailyOperator struct {
	Basis    DateBasis                        `gorm:"type:varchar(16);primaryKey" json:"basis"`
	Date     string                           `gorm:"type:varchar(10);primaryKey" json:"date"`
	Operator string                           `gorm:"primaryKey" json:"operator"`
	Bookings int                              `gorm:"not null" json:"bookings"`
	Brutto   decimal.Decimal                  `gorm:"type:numeric(18,2);not null" json:"brutto"`
	Owners   datatypes.JSONType[OwnerAmounts] `json:"owners"`
}

// TableName overrides the default table name.
func (SalesDailyOperator) TableName() string {
	return "cache_sales_daily_operator"
}

// OwnerMovementSource tells where a founders movement came from.
type OwnerMovementSource string

const (
	OwnerMovementBooking     OwnerMovementSource = "booking"
	OwnerMovementTransaction OwnerMovementSource = "transaction"
)

// OwnerMovement is one profit share, payout or contribution of an owner.
// Positive amounts credit the owner; payouts are negative.
type OwnerMovement struct {
	Date     string              `json:"date"`
	OwnerID  string              `json:"owner_id"`
	Amount   decimal.Decimal     `json:"amount"`
	Source   OwnerMovementSource `json:"source"`
	SourceID string              `json:"source_id"`
	Rule     string              `json:"rule"`
	Note     string              `json:"note,omitempty"`
}

// FoundersPayload is the founders cache document.
type FoundersPayload struct {
	Movements []OwnerMovement            `json:"movements"`
	Totals    map[string]decimal.Decimal `json:"totals"`
	Issues    []string                   `json:"issues"`
}

// AccountBalance is the derived balance of one account.
type AccountBalance struct {
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Native    decimal.Decimal `json:"native"`
	Pivot     decimal.Decimal `json:"pivot"`
	Archived  bool            `json:"archived"`
}

// CashFlowDay is the inflow and outflow of one day, transfers excluded.
type CashFlowDay struct {
	Date    string          `json:"date"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
}

// PlannedSummary is a planned entry shown on the overview.
type PlannedSummary struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	AccountID  string          `json:"account_id"`
	Side       Side            `json:"side"`
	TargetDate string          `json:"target_date"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Pivot      decimal.Decimal `json:"pivot"`
}

// RecentTransaction is an entry in the overview live feed.
type RecentTransaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	AccountID   string          `json:"account_id"`
	Kind        MovementKind    `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	Description string          `json:"description,omitempty"`
}

// OverviewPayload is the overview cache document.
type OverviewPayload struct {
	AsOf     string              `json:"as_of"`
	Balances []AccountBalance    `json:"balances"`
	CashFlow []CashFlowDay       `json:"cash_flow"`
	Upcoming []PlannedSummary    `json:"upcoming"`
	Overdue  []PlannedSummary    `json:"overdue"`
	Recent   []RecentTransaction `json:"recent"`
}

// CacheDocument is a single-document cache (founders, overview).
type CacheDocument struct {
	Name    string         `gorm:"primaryKey" json:"name"`
	Payload datatypes.JSON `gorm:"not null" json:"payload"`
}

// TableName overrides the default table name.
func (CacheDocument) TableName() string {
	return "cache_documents"
}

// JobState is the externally visible state of an aggregation job.
type JobState string

const (
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobError   JobState = "error"
)

// JobStatus is the status record written by every aggregation job run.
type JobStatus struct {
	Name        string         `gorm:"primaryKey" json:"name"`
	State       JobState       `gorm:"type:varchar(16);not null" json:"state"`
	From        string         `gorm:"type:varchar(10)" json:"from,omitempty"`
	To          string         `gorm:"type:varchar(10)" json:"to,omitempty"`
	Message     string         `json:"message,omitempty"`
	Diagnostics datatypes.JSON `json:"diagnostics,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
}

// TableName overrides the default table name.
func (JobStatus) TableName() string {
	return "job_status"
}
