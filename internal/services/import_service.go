package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crocus/internal/config"
	apperrors "crocus/internal/errors"
	"crocus/internal/fx"
	"crocus/internal/heuristics"
	"crocus/internal/logger"
	"crocus/internal/models"
	"crocus/internal/pagination"
	"crocus/internal/statement"
)

// ImportRequest describes where a statement belongs.
type ImportRequest struct {
	AccountID string
	Source    string
	Currency  string
}

// ImportReport summarizes one statement import.
type ImportReport struct {
	BatchID    string   `json:"batch_id"`
	Imported   int      `json:"imported"`
	Skipped    int      `json:"skipped"`
	Duplicates int      `json:"duplicates"`
	Reconciled int      `json:"reconciled"`
	Errors     []string `json:"errors,omitempty"`
}

// importService turns bank statements into actual ledger transactions.
type importService struct {
	db              *gorm.DB
	accountService  AccountServicer
	categoryService CategoryServicer
	rateService     RateServicer
	matcher         ReconciliationServicer
	keywords        config.PaymentKeywords
	log             *zap.SugaredLogger
}

// NewImportService creates a new ImportServicer.
func NewImportService(
	db *gorm.DB,
	accountService AccountServicer,
	categoryService CategoryServicer,
	rateService RateServicer,
	matcher ReconciliationServicer,
	keywords config.PaymentKeywords,
) ImportServicer {
	return &importService{
		db:              db,
		accountService:  accountService,
		categoryService: categoryService,
		rateService:     rateService,
		matcher:         matcher,
		keywords:        keywords,
		log:             logger.Component("import"),
	}
}

// ImportStatement parses r and writes every new movement as an actual
// transaction tagged with a fresh import batch. Rows already in the
// ledger (same fingerprint) are counted as duplicates; unreadable rows
// are skipped. Re-importing the same statement imports nothing.
func (s *importService) ImportStatement(ctx context.Context, req ImportRequest, r io.Reader) (*ImportReport, error) {
	account, err := s.accountService.GetAccountByID(req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Archived {
		return nil, apperrors.ErrAccountArchived
	}

	rows, rowErrs, err := statement.ParseLines(r)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	if len(rows) == 0 && len(rowErrs) == 0 {
		return nil, apperrors.ErrEmptyStatement
	}

	report := &ImportReport{Skipped: len(rowErrs)}
	for _, re := range rowErrs {
		s.log.Warnw("Skipping malformed statement row", "account_id", account.ID, "line", re.Line, "error", re.Err)
		report.Errors = append(report.Errors, re.Error())
	}

	system, err := s.categoryService.EnsureSystemCategories()
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = account.Currency
	}

	tables := s.rateTables(ctx, rows)

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "statement"
	}
	batch := &models.ImportBatch{AccountID: account.ID, Source: source}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		seen := make(map[string]bool, len(rows))
		for _, row := range rows {
			kind, amount, err := statement.KindFromAmount(row.Amount)
			if err != nil {
				s.log.Warnw("Skipping statement row", "account_id", account.ID, "line", row.Line, "error", err)
				report.Skipped++
				report.Errors = append(report.Errors, statement.RowError{Line: row.Line, Err: err}.Error())
				continue
			}

			rowCurrency := currency
			if row.Currency != "" {
				rowCurrency = strings.ToUpper(row.Currency)
			}

			fingerprint := statement.Fingerprint(statement.FingerprintInput{
				AccountID:   account.ID,
				Date:        row.Date,
				Kind:        kind,
				Amount:      amount,
				Currency:    rowCurrency,
				Description: row.Description,
			})
			key := statement.FingerprintKey(fingerprint)

			if seen[key] {
				report.Duplicates++
				continue
			}
			seen[key] = true

			table := tables[row.Date]
			transaction := &models.Transaction{
				Date:           row.Date,
				Status:         models.TransactionStatusActual,
				Kind:           kind,
				Side:           models.SideForKind(kind),
				Amount:         amount,
				Currency:       rowCurrency,
				BaseAmount:     s.toPivot(amount, rowCurrency, row.Date, table),
				AccountID:      account.ID,
				Description:    row.Description,
				PaymentMethod:  heuristics.PaymentMethod(row.Description, s.keywords),
				Fingerprint:    &fingerprint,
				FingerprintKey: &key,
				ImportBatchID:  &batch.ID,
			}
			if category := defaultCategory(system, kind); category != nil {
				transaction.CategoryID = &category.ID
			}

			// The unique fingerprint index decides duplicates, including rows
			// a concurrent import committed after this one started.
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(transaction)
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
			if res.RowsAffected == 0 {
				report.Duplicates++
				continue
			}
			report.Imported++

			match, err := s.matcher.FindMatch(tx, MatchQuery{
				AccountID: account.ID,
				Date:      row.Date,
				Side:      transaction.Side,
				Amount:    amount,
				Currency:  rowCurrency,
				ExcludeID: transaction.ID,
			}, table)
			if err != nil {
				return err
			}
			if match == nil {
				continue
			}
			if err := s.matcher.ApplyMatch(tx, transaction, match.Entry); err != nil {
				return err
			}
			report.Reconciled++
		}

		return tx.Model(batch).Updates(map[string]interface{}{
			"imported":   report.Imported,
			"skipped":    report.Skipped,
			"duplicates": report.Duplicates,
			"reconciled": report.Reconciled,
		}).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	report.BatchID = batch.ID
	s.log.Infow("Statement imported",
		"batch_id", batch.ID,
		"account_id", account.ID,
		"imported", report.Imported,
		"skipped", report.Skipped,
		"duplicates", report.Duplicates,
		"reconciled", report.Reconciled,
	)
	return report, nil
}

// rateTables loads one rate table per distinct row date before any write.
// A day without rates maps to nil and its rows get a zero base amount.
func (s *importService) rateTables(ctx context.Context, rows []statement.Row) map[string]fx.Table {
	days := make([]string, 0)
	tables := make(map[string]fx.Table)
	for _, row := range rows {
		if _, ok := tables[row.Date]; !ok {
			tables[row.Date] = nil
			days = append(days, row.Date)
		}
	}
	sort.Strings(days)

	for _, day := range days {
		table, used, err := s.rateService.EnsureRates(ctx, day)
		if err != nil {
			s.log.Warnw("No rates for statement day", "date", day, "error", err)
			continue
		}
		if used != day {
			s.log.Infow("Statement day uses fallback rates", "date", day, "rates_date", used)
		}
		tables[day] = table
	}
	return tables
}

// toPivot converts with the row's table, falling back to zero.
func (s *importService) toPivot(amount decimal.Decimal, currency, day string, table fx.Table) decimal.Decimal {
	v, err := fx.Convert(amount, currency, config.PivotCurrency, table)
	if err != nil {
		s.log.Warnw("Statement row converted to zero", "date", day, "currency", currency, "error", err)
		return decimal.Zero
	}
	return v
}

func defaultCategory(system *SystemCategories, kind models.MovementKind) *models.Category {
	if system == nil {
		return nil
	}
	if kind == models.MovementIn {
		return system.ClientPayment
	}
	return system.RefundOther
}

// RollbackImport deletes every transaction of a batch with its orders
// and releases the planned entries they were matched to.
func (s *importService) RollbackImport(ctx context.Context, batchID string) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	if err := s.db.Where("id = ?", batchID).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrImportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if batch.RolledBack {
		return nil, apperrors.ErrImportReverted
	}

	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transactions []models.Transaction
		if err := tx.Where("import_batch_id = ?", batchID).Find(&transactions).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for i := range transactions {
			if err := removeTransaction(tx, &transactions[i]); err != nil {
				return err
			}
			removed++
		}
		if err := tx.Model(&batch).Update("rolled_back", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	batch.RolledBack = true
	s.log.Infow("Import rolled back", "batch_id", batchID, "removed", removed)
	return &batch, nil
}

// ListImports retrieves a paginated list of import batches, newest first.
func (s *importService) ListImports(page pagination.PageRequest) (*pagination.PageResponse[models.ImportBatch], error) {
	order, err := pageOrder(&page, importSorting)
	if err != nil {
		return nil, err
	}

	var totalItems int64
	if err := s.db.Model(&models.ImportBatch{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var batches []models.ImportBatch
	if err := s.db.Scopes(pagination.Paginate(page)).
		Order(order).
		Find(&batches).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(batches, page.Page, page.PageSize, totalItems)
	return &result, nil
}
