package services

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crocus/internal/fx"
	"crocus/internal/models"
	"crocus/internal/pagination"
)

// AccountUpdateFields holds optional fields for updating an account.
type AccountUpdateFields struct {
	Name           *string
	OpeningBalance *decimal.Decimal
	Archived       *bool
}

// AccountServicer defines the contract for account and counterparty business logic.
type AccountServicer interface {
	CreateAccount(name, currency string, openingBalance decimal.Decimal) (*models.Account, error)
	ListAccounts(page pagination.PageRequest, includeArchived bool) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(accountID string) (*models.Account, error)
	UpdateAccount(accountID string, fields AccountUpdateFields) (*models.Account, error)
	CreateCounterparty(name string) (*models.Counterparty, error)
	ListCounterparties(page pagination.PageRequest) (*pagination.PageResponse[models.Counterparty], error)
	GetCounterpartyByID(counterpartyID string) (*models.Counterparty, error)
	ArchiveCounterparty(counterpartyID string) error
}

// CategoryServicer defines the contract for category business logic.
type CategoryServicer interface {
	CreateCategory(name string, side models.CategorySide) (*models.Category, error)
	ListCategories(page pagination.PageRequest, side *models.CategorySide) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(categoryID string) (*models.Category, error)
	UpdateCategory(categoryID string, name *string, side *models.CategorySide) (*models.Category, error)
	DeleteCategory(categoryID string) error
	EnsureSystemCategories() (*SystemCategories, error)
}

// TransactionInput carries the operator-editable fields of a transaction.
// BaseAmount is never accepted from callers; it is recomputed on write.
type TransactionInput struct {
	Date           string
	DueDate        *string
	ActualDate     *string
	Status         models.TransactionStatus
	Kind           models.MovementKind
	Amount         decimal.Decimal
	Currency       string
	AccountID      string
	ToAccountID    *string
	ToAmount       *decimal.Decimal
	CategoryID     *string
	CounterpartyID *string
	Note           string
	Description    string
	PaymentMethod  models.PaymentMethod
	OwnerSplits    models.OwnerAmounts
	OwnerTag       *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate      string
	ToDate        string
	Status        *models.TransactionStatus
	Kind          *models.MovementKind
	AccountID     *string
	CategoryID    *string
	ImportBatchID *string
}

// RangeField selects the primary date field of a two-field range query.
type RangeField string

const (
	// RangePlanned queries due_date, falling back to date.
	RangePlanned RangeField = "due_date"
	// RangeActual queries actual_date, falling back to date.
	RangeActual RangeField = "actual_date"
)

// LedgerServicer defines the contract for the transaction ledger.
type LedgerServicer interface {
	CreateTransaction(in TransactionInput) (*models.Transaction, error)
	UpdateTransaction(transactionID string, in TransactionInput) (*models.Transaction, error)
	GetTransaction(transactionID string) (*models.Transaction, error)
	ListTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	MarkActual(transactionID, actualDate string) (*models.Transaction, error)
	LinkPlanned(transactionID, plannedID string) (*models.Transaction, error)
	RemoveTransaction(transactionID string) error
	QueryByDateRange(ctx context.Context, field RangeField, from, to string, statuses ...models.TransactionStatus) ([]models.Transaction, error)
	PlannedEntries(ctx context.Context, from, to string) ([]PlannedEntry, error)
}

// AllocationInput allocates part of a transaction to a booking.
type AllocationInput struct {
	BookingID  string
	BaseAmount decimal.Decimal
}

// AllocationServicer defines the contract for booking allocations.
type AllocationServicer interface {
	UpsertAllocations(transactionID string, allocations []AllocationInput) ([]models.Order, error)
	GetAllocations(transactionID string) ([]models.Order, error)
	BookingRemainder(bookingID string) (*BookingRemainder, error)
}

// ReconciliationServicer defines the contract for planned-vs-actual matching.
type ReconciliationServicer interface {
	FindMatch(db *gorm.DB, q MatchQuery, table fx.Table) (*MatchResult, error)
	ApplyMatch(db *gorm.DB, actual *models.Transaction, entry PlannedEntry) error
	Reconcile(ctx context.Context, transactionID string) (*models.Transaction, error)
}

// ImportServicer defines the contract for bank-statement imports.
type ImportServicer interface {
	ImportStatement(ctx context.Context, req ImportRequest, r io.Reader) (*ImportReport, error)
	RollbackImport(ctx context.Context, batchID string) (*models.ImportBatch, error)
	ListImports(page pagination.PageRequest) (*pagination.PageResponse[models.ImportBatch], error)
}

// RateFeed pulls pivot rate tables from an upstream source.
type RateFeed interface {
	FetchTable(ctx context.Context, day string, currencies []string) (fx.Table, error)
}

// RateServicer defines the contract for exchange rate tables.
type RateServicer interface {
	PublishRates(day string, table fx.Table, source string) error
	EnsureRates(ctx context.Context, day string) (fx.Table, string, error)
	GetRates(day string) (fx.Table, string, error)
	RateBook() (*fx.RateBook, error)
}

// BookingSource reads bookings from the intake system.
type BookingSource interface {
	Each(ctx context.Context, fn func(*models.Booking) error) error
	Get(bookingID string) (*models.Booking, error)
}

// JobServicer defines the contract for the aggregation jobs.
type JobServicer interface {
	Run(ctx context.Context, name string, window JobWindow) ([]models.JobStatus, error)
	AccountDaily(ctx context.Context, window JobWindow) error
	PnLMonthly(ctx context.Context, window JobWindow) error
	SalesDashboard(ctx context.Context) error
	Founders(ctx context.Context) error
	Overview(ctx context.Context) error
	Status(name string) (*models.JobStatus, error)
	ListStatus() ([]models.JobStatus, error)
}

// CacheServicer defines read access to the derived caches.
type CacheServicer interface {
	AccountDaily(from, to string) ([]models.AccountDaily, error)
	PnLMonthly(fromMonth, toMonth string) ([]models.PnLMonthly, error)
	SalesDaily(basis models.DateBasis, from, to string) ([]models.SalesDaily, error)
	SalesDailyByOperator(basis models.DateBasis, from, to, operator string) ([]models.SalesDailyOperator, error)
	Founders() (*models.FoundersPayload, error)
	Overview() (*models.OverviewPayload, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actorID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
