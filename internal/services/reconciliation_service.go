package services

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"crocus/internal/config"
	"crocus/internal/dates"
	apperrors "crocus/internal/errors"
	"crocus/internal/fx"
	"crocus/internal/logger"
	"crocus/internal/models"
)

// MatchWindowDays is how many calendar days a planned entry may lie
// before or after the movement.
const MatchWindowDays = 3

// MatchTolerance is the largest pivot-currency difference still accepted.
var MatchTolerance = decimal.NewFromInt(1)

// MatchQuery describes an actual movement looking for its planned entry.
type MatchQuery struct {
	AccountID string
	Date      string
	Side      models.Side
	Amount    decimal.Decimal
	Currency  string
	ExcludeID string
}

// MatchResult is the accepted candidate and how far it was off.
type MatchResult struct {
	Entry      PlannedEntry    `json:"entry"`
	Difference decimal.Decimal `json:"difference"`
	DaysApart  int             `json:"days_apart"`
}

// SelectCandidate picks the unmatched candidate on the same account and
// side, within the date window, whose pivot amount is closest to the
// movement's. Both sides are converted with the movement's table. Ties go
// to the closer date, then the smaller id. Nothing is returned when the
// best difference exceeds MatchTolerance.
func SelectCandidate(q MatchQuery, candidates []PlannedEntry, table fx.Table) *MatchResult {
	movement, err := fx.Convert(q.Amount, q.Currency, config.PivotCurrency, table)
	if err != nil {
		return nil
	}

	var best *MatchResult
	for _, c := range candidates {
		if c.Matched() || c.ID == q.ExcludeID || c.AccountID != q.AccountID || c.Side != q.Side {
			continue
		}
		days, err := dates.DaysBetween(q.Date, c.TargetDate)
		if err != nil {
			continue
		}
		if days < 0 {
			days = -days
		}
		if days > MatchWindowDays {
			continue
		}

		candidate, err := fx.Convert(c.Amount, c.Currency, config.PivotCurrency, table)
		if err != nil {
			continue
		}
		diff := movement.Sub(candidate).Abs()

		if best == nil || better(diff, days, c.ID, best) {
			best = &MatchResult{Entry: c, Difference: diff, DaysApart: days}
		}
	}

	if best == nil || best.Difference.GreaterThan(MatchTolerance) {
		return nil
	}
	return best
}

func better(diff decimal.Decimal, days int, id string, current *MatchResult) bool {
	if c := diff.Cmp(current.Difference); c != 0 {
		return c < 0
	}
	if days != current.DaysApart {
		return days < current.DaysApart
	}
	return id < current.Entry.ID
}

// reconciliationService links actual movements to planned entries.
type reconciliationService struct {
	db            *gorm.DB
	ledgerService LedgerServicer
	rateService   RateServicer
	log           *zap.SugaredLogger
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *gorm.DB, ledgerService LedgerServicer, rateService RateServicer) ReconciliationServicer {
	return &reconciliationService{
		db:            db,
		ledgerService: ledgerService,
		rateService:   rateService,
		log:           logger.Component("reconciliation"),
	}
}

// FindMatch loads the open planned entries around q and selects the best
// one. db may be a transaction so that matches made earlier in the same
// batch are already excluded. A nil result means no match.
func (s *reconciliationService) FindMatch(db *gorm.DB, q MatchQuery, table fx.Table) (*MatchResult, error) {
	from, err := dates.AddDays(q.Date, -MatchWindowDays)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	to, err := dates.AddDays(q.Date, MatchWindowDays)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	candidates, err := openPlanned(db, q.AccountID, q.Side, from, to)
	if err != nil {
		return nil, err
	}
	return SelectCandidate(q, candidates, table), nil
}

// openPlanned returns unmatched planned entries of one account and side
// with a target date in range, from both planned stores.
func openPlanned(db *gorm.DB, accountID string, side models.Side, from, to string) ([]PlannedEntry, error) {
	inWindow := func(day string) bool { return dates.InRange(day, from, to) }

	var txs []models.Transaction
	if err := db.Where("account_id = ? AND side = ? AND status = ? AND matched_tx_id IS NULL",
		accountID, side, models.TransactionStatusPlanned).
		Where("(due_date >= ? AND due_date <= ?) OR (date >= ? AND date <= ?)", from, to, from, to).
		Find(&txs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	fromTx := make([]PlannedEntry, 0, len(txs))
	for i := range txs {
		if e := plannedFromTransaction(&txs[i]); inWindow(e.TargetDate) {
			fromTx = append(fromTx, e)
		}
	}

	var legacyRows []models.Planned
	if err := db.Where("account_id = ? AND side = ? AND matched_tx_id IS NULL", accountID, side).
		Where("(due_date >= ? AND due_date <= ?) OR (date >= ? AND date <= ?)", from, to, from, to).
		Find(&legacyRows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	legacy := make([]PlannedEntry, 0, len(legacyRows))
	for i := range legacyRows {
		if e := plannedFromLegacy(&legacyRows[i]); inWindow(e.TargetDate) {
			legacy = append(legacy, e)
		}
	}

	return mergePlanned(fromTx, legacy), nil
}

// ApplyMatch marks both sides of a match: the actual becomes reconciled
// and the planned entry records the actual's id.
func (s *reconciliationService) ApplyMatch(db *gorm.DB, actual *models.Transaction, entry PlannedEntry) error {
	return applyMatch(db, actual, entry)
}

func applyMatch(db *gorm.DB, actual *models.Transaction, entry PlannedEntry) error {
	if actual.ID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction must be stored before it is matched")
	}
	if err := db.Model(&models.Transaction{}).Where("id = ?", actual.ID).Updates(map[string]interface{}{
		"status":             models.TransactionStatusReconciled,
		"matched_planned_id": entry.ID,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := setOrderStatus(db, actual.ID, models.TransactionStatusReconciled); err != nil {
		return err
	}
	if err := setPlannedMatch(db, entry, actual.ID); err != nil {
		return err
	}

	actual.Status = models.TransactionStatusReconciled
	id := entry.ID
	actual.MatchedPlannedID = &id
	return nil
}

// Reconcile searches a planned entry for a stored actual transaction and
// links it when one is within tolerance.
func (s *reconciliationService) Reconcile(ctx context.Context, transactionID string) (*models.Transaction, error) {
	transaction, err := s.ledgerService.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.Status != models.TransactionStatusActual || transaction.Kind == models.MovementTransfer {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only unmatched in/out actual transactions can be reconciled")
	}

	day := transaction.EffectiveDate()
	table, _, err := s.rateService.EnsureRates(ctx, day)
	if err != nil {
		return nil, err
	}

	q := MatchQuery{
		AccountID: transaction.AccountID,
		Date:      day,
		Side:      transaction.Side,
		Amount:    transaction.Amount,
		Currency:  transaction.Currency,
		ExcludeID: transaction.ID,
	}

	var match *MatchResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		match, err = s.FindMatch(tx, q, table)
		if err != nil {
			return err
		}
		if match == nil {
			return apperrors.WithMessage(apperrors.ErrPlannedNotFound, "no planned entry within tolerance")
		}
		return applyMatch(tx, transaction, match.Entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("Transaction reconciled",
		"transaction_id", transaction.ID,
		"planned_id", match.Entry.ID,
		"difference", match.Difference.String(),
	)
	return s.ledgerService.GetTransaction(transactionID)
}
