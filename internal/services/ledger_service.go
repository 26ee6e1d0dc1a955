package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"crocus/internal/config"
	"crocus/internal/dates"
	apperrors "crocus/internal/errors"
	"crocus/internal/fx"
	"crocus/internal/models"
	"crocus/internal/pagination"
)

// ledgerService handles the transaction ledger.
type ledgerService struct {
	db             *gorm.DB
	accountService AccountServicer
	rateService    RateServicer
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, accountService AccountServicer, rateService RateServicer) LedgerServicer {
	return &ledgerService{
		db:             db,
		accountService: accountService,
		rateService:    rateService,
	}
}

// CreateTransaction validates the input, recomputes the base amount and
// stores the transaction.
func (s *ledgerService) CreateTransaction(in TransactionInput) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	if err := s.apply(transaction, in); err != nil {
		return nil, err
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// UpdateTransaction replaces the editable fields of a transaction and
// mirrors the change onto its orders. Import, fingerprint and match
// links are kept.
func (s *ledgerService) UpdateTransaction(transactionID string, in TransactionInput) (*models.Transaction, error) {
	transaction, err := s.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}

	if in.Status == "" {
		in.Status = transaction.Status
	}
	if transaction.Status != in.Status && transaction.Status != models.TransactionStatusPlanned {
		return nil, apperrors.ErrInvalidStatusChange
	}
	if in.Status == models.TransactionStatusReconciled && transaction.MatchedPlannedID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only matched transactions can be reconciled")
	}

	if err := s.apply(transaction, in); err != nil {
		return nil, err
	}
	transaction.Category = nil
	transaction.Counterparty = nil

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return syncOrders(tx, transaction)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(transactionID)
}

// apply validates in and writes it onto t, including the base amount.
func (s *ledgerService) apply(t *models.Transaction, in TransactionInput) error {
	if !dates.Valid(in.Date) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD")
	}
	if in.DueDate != nil && *in.DueDate != "" && !dates.Valid(*in.DueDate) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "due date must be YYYY-MM-DD")
	}
	if in.ActualDate != nil && *in.ActualDate != "" && !dates.Valid(*in.ActualDate) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "actual date must be YYYY-MM-DD")
	}
	if !in.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	status := in.Status
	if status == "" {
		status = models.TransactionStatusActual
	}
	switch status {
	case models.TransactionStatusPlanned, models.TransactionStatusActual, models.TransactionStatusReconciled:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown status "+string(status))
	}

	account, err := s.accountService.GetAccountByID(in.AccountID)
	if err != nil {
		return err
	}
	if account.Archived {
		return apperrors.ErrAccountArchived
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = account.Currency
	}

	var toAccountID *string
	var toAmount *decimal.Decimal
	switch in.Kind {
	case models.MovementIn, models.MovementOut:
	case models.MovementTransfer:
		if in.ToAccountID == nil || *in.ToAccountID == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer requires a destination account")
		}
		if *in.ToAccountID == in.AccountID {
			return apperrors.ErrSameAccountTransfer
		}
		toAccount, err := s.accountService.GetAccountByID(*in.ToAccountID)
		if err != nil {
			return err
		}
		if toAccount.Archived {
			return apperrors.ErrAccountArchived
		}
		toAccountID = &toAccount.ID
		if in.ToAmount != nil {
			v := in.ToAmount.Round(2)
			toAmount = &v
		} else {
			v, err := s.convert(in.Amount, currency, toAccount.Currency, in.Date)
			if err != nil {
				return err
			}
			toAmount = &v
		}
	default:
		return apperrors.ErrInvalidMovementKind
	}

	if in.CategoryID != nil && *in.CategoryID != "" {
		var count int64
		if err := s.db.Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrCategoryNotFound
		}
	}
	if in.CounterpartyID != nil && *in.CounterpartyID != "" {
		if _, err := s.accountService.GetCounterpartyByID(*in.CounterpartyID); err != nil {
			return err
		}
	}
	for owner, v := range in.OwnerSplits {
		if v.IsNegative() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "owner split for "+owner+" cannot be negative")
		}
	}

	baseAmount, err := s.convert(in.Amount, currency, config.PivotCurrency, in.Date)
	if err != nil {
		return err
	}

	t.Date = in.Date
	t.DueDate = nonEmpty(in.DueDate)
	t.ActualDate = nonEmpty(in.ActualDate)
	t.Status = status
	t.Kind = in.Kind
	t.Side = models.SideForKind(in.Kind)
	t.Amount = in.Amount.Round(2)
	t.Currency = currency
	t.BaseAmount = baseAmount
	t.AccountID = account.ID
	t.ToAccountID = toAccountID
	t.ToAmount = toAmount
	t.CategoryID = nonEmpty(in.CategoryID)
	t.CounterpartyID = nonEmpty(in.CounterpartyID)
	t.Note = in.Note
	t.Description = in.Description
	t.PaymentMethod = in.PaymentMethod
	t.OwnerSplits = datatypes.NewJSONType(in.OwnerSplits)
	t.OwnerTag = nonEmpty(in.OwnerTag)
	return nil
}

// convert converts with the rates of day, pulling them if needed.
func (s *ledgerService) convert(amount decimal.Decimal, from, to, day string) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return amount.Round(2), nil
	}
	table, _, err := s.rateService.EnsureRates(context.Background(), day)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := fx.Convert(amount, from, to, table)
	if err != nil {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrRatesNotFound, err.Error())
	}
	return v, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// GetTransaction retrieves a transaction by ID.
func (s *ledgerService) GetTransaction(transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").Preload("Counterparty").
		Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// ListTransactions retrieves a paginated, filtered list of transactions.
func (s *ledgerService) ListTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	order, err := pageOrder(&page, transactionSorting)
	if err != nil {
		return nil, err
	}

	base := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order(order).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != "" {
		q = q.Where("date >= ?", f.FromDate)
	}
	if f.ToDate != "" {
		q = q.Where("date <= ?", f.ToDate)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Kind != nil {
		q = q.Where("kind = ?", *f.Kind)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ? OR to_account_id = ?", *f.AccountID, *f.AccountID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.ImportBatchID != nil {
		q = q.Where("import_batch_id = ?", *f.ImportBatchID)
	}
	return q
}

// MarkActual turns a planned transaction into an actual one.
func (s *ledgerService) MarkActual(transactionID, actualDate string) (*models.Transaction, error) {
	transaction, err := s.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.Status != models.TransactionStatusPlanned {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only planned transactions can be marked actual")
	}
	if actualDate == "" {
		actualDate = dates.Today()
	}
	if !dates.Valid(actualDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "actual date must be YYYY-MM-DD")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("id = ?", transactionID).Updates(map[string]interface{}{
			"status":      models.TransactionStatusActual,
			"actual_date": actualDate,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return setOrderStatus(tx, transactionID, models.TransactionStatusActual)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(transactionID)
}

// LinkPlanned manually reconciles an actual transaction with a planned entry.
func (s *ledgerService) LinkPlanned(transactionID, plannedID string) (*models.Transaction, error) {
	transaction, err := s.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.Status != models.TransactionStatusActual {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only unmatched actual transactions can be linked")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		entry, err := loadPlannedEntry(tx, plannedID)
		if err != nil {
			return err
		}
		if entry.ID == transaction.ID {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "a transaction cannot be linked to itself")
		}
		if entry.Matched() {
			return apperrors.ErrPlannedMatched
		}
		if entry.Side != transaction.Side {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "planned entry is on the other side")
		}
		return applyMatch(tx, transaction, *entry)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(transactionID)
}

// RemoveTransaction deletes a transaction with all its orders and
// releases any match it took part in.
func (s *ledgerService) RemoveTransaction(transactionID string) error {
	transaction, err := s.GetTransaction(transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return removeTransaction(tx, transaction)
	})
}

// removeTransaction is the cascade shared by RemoveTransaction and import rollback.
func removeTransaction(tx *gorm.DB, t *models.Transaction) error {
	if err := tx.Where("transaction_id = ?", t.ID).Delete(&models.Order{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// An actual matched to a planned entry frees the planned entry.
	if t.MatchedPlannedID != nil {
		entry, err := loadPlannedEntry(tx, *t.MatchedPlannedID)
		if err != nil && !errors.Is(err, apperrors.ErrPlannedNotFound) {
			return err
		}
		if entry != nil {
			if err := setPlannedMatch(tx, *entry, ""); err != nil {
				return err
			}
		}
	}

	// A planned entry matched by an actual turns that actual back to unmatched.
	if t.MatchedTxID != nil {
		if err := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", *t.MatchedTxID, models.TransactionStatusReconciled).
			Updates(map[string]interface{}{
				"status":             models.TransactionStatusActual,
				"matched_planned_id": nil,
			}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := setOrderStatus(tx, *t.MatchedTxID, models.TransactionStatusActual); err != nil {
			return err
		}
	}

	if err := tx.Delete(&models.Transaction{}, "id = ?", t.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// QueryByDateRange returns transactions whose effective date lies in the
// inclusive range. Producers fill either the primary field (due_date or
// actual_date) or only date, so both are queried and the results merged
// by id. Empty bounds are open.
func (s *ledgerService) QueryByDateRange(ctx context.Context, field RangeField, from, to string, statuses ...models.TransactionStatus) ([]models.Transaction, error) {
	if field != RangePlanned && field != RangeActual {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown range field")
	}

	byID := make(map[string]models.Transaction)
	collect := func(column string) error {
		q := s.db.Model(&models.Transaction{})
		if from != "" {
			q = q.Where(column+" >= ?", from)
		}
		if to != "" {
			q = q.Where(column+" <= ?", to)
		}
		if len(statuses) > 0 {
			q = q.Where("status IN ?", statuses)
		}
		return scanAll(ctx, q, func(t *models.Transaction) error {
			byID[t.ID] = *t
			return nil
		})
	}
	if err := collect(string(field)); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := collect("date"); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	key := func(t *models.Transaction) string {
		if field == RangePlanned {
			return t.PlannedDate()
		}
		return t.EffectiveDate()
	}

	out := make([]models.Transaction, 0, len(byID))
	for _, t := range byID {
		k := key(&t)
		if (from != "" && k < from) || (to != "" && k > to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := key(&out[i]), key(&out[j])
		if ki != kj {
			return ki < kj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PlannedEntries returns planned transactions and legacy planned records
// with a target date in range, normalized and deduplicated by id.
func (s *ledgerService) PlannedEntries(ctx context.Context, from, to string) ([]PlannedEntry, error) {
	txs, err := s.QueryByDateRange(ctx, RangePlanned, from, to, models.TransactionStatusPlanned)
	if err != nil {
		return nil, err
	}
	fromTx := make([]PlannedEntry, 0, len(txs))
	for i := range txs {
		fromTx = append(fromTx, plannedFromTransaction(&txs[i]))
	}

	legacyByID := make(map[string]PlannedEntry)
	for _, column := range []string{"due_date", "date"} {
		q := s.db.Model(&models.Planned{})
		if from != "" {
			q = q.Where(column+" >= ?", from)
		}
		if to != "" {
			q = q.Where(column+" <= ?", to)
		}
		err := scanAll(ctx, q, func(p *models.Planned) error {
			e := plannedFromLegacy(p)
			if (from == "" || e.TargetDate >= from) && (to == "" || e.TargetDate <= to) {
				legacyByID[e.ID] = e
			}
			return nil
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	legacy := make([]PlannedEntry, 0, len(legacyByID))
	for _, e := range legacyByID {
		legacy = append(legacy, e)
	}

	return mergePlanned(fromTx, legacy), nil
}
