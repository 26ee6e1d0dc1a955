package services

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
)

// PlannedSource tells which store a planned entry came from.
type PlannedSource string

const (
	PlannedFromTransaction PlannedSource = "transaction"
	PlannedFromLegacy      PlannedSource = "legacy"
)

// PlannedEntry is the single in-memory shape of a planned movement,
// whether it lives in the legacy planned table or is a planned transaction.
type PlannedEntry struct {
	ID         string          `json:"id"`
	Source     PlannedSource   `json:"source"`
	AccountID  string          `json:"account_id"`
	Side       models.Side     `json:"side"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	TargetDate string          `json:"target_date"`
	MatchedID  *string         `json:"matched_id,omitempty"`
}

// Matched reports whether an actual movement has been linked to the entry.
func (p PlannedEntry) Matched() bool {
	return p.MatchedID != nil && *p.MatchedID != ""
}

func plannedFromTransaction(t *models.Transaction) PlannedEntry {
	return PlannedEntry{
		ID:         t.ID,
		Source:     PlannedFromTransaction,
		AccountID:  t.AccountID,
		Side:       t.Side,
		Amount:     t.Amount,
		Currency:   t.Currency,
		BaseAmount: t.BaseAmount,
		TargetDate: t.PlannedDate(),
		MatchedID:  t.MatchedTxID,
	}
}

func plannedFromLegacy(p *models.Planned) PlannedEntry {
	return PlannedEntry{
		ID:         p.ID,
		Source:     PlannedFromLegacy,
		AccountID:  p.AccountID,
		Side:       p.Side,
		Amount:     p.Amount,
		Currency:   p.Currency,
		BaseAmount: p.BaseAmount,
		TargetDate: p.PlannedDate(),
		MatchedID:  p.MatchedTxID,
	}
}

// mergePlanned deduplicates entries by id, preferring the transaction
// shape over the legacy one, and sorts them by target date then id.
func mergePlanned(transactions, legacy []PlannedEntry) []PlannedEntry {
	byID := make(map[string]PlannedEntry, len(transactions)+len(legacy))
	for _, e := range legacy {
		byID[e.ID] = e
	}
	for _, e := range transactions {
		byID[e.ID] = e
	}

	out := make([]PlannedEntry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetDate != out[j].TargetDate {
			return out[i].TargetDate < out[j].TargetDate
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// loadPlannedEntry resolves a planned entry id against both stores.
func loadPlannedEntry(db *gorm.DB, id string) (*PlannedEntry, error) {
	var t models.Transaction
	err := db.Where("id = ? AND status = ?", id, models.TransactionStatusPlanned).First(&t).Error
	if err == nil {
		e := plannedFromTransaction(&t)
		return &e, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var p models.Planned
	err = db.Where("id = ?", id).First(&p).Error
	if err == nil {
		e := plannedFromLegacy(&p)
		return &e, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrPlannedNotFound
	}
	return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// setPlannedMatch writes (or clears, with an empty txID) the match link on
// the planned side.
func setPlannedMatch(db *gorm.DB, entry PlannedEntry, txID string) error {
	var value interface{}
	if txID != "" {
		value = txID
	}

	var err error
	switch entry.Source {
	case PlannedFromTransaction:
		err = db.Model(&models.Transaction{}).Where("id = ?", entry.ID).Update("matched_tx_id", value).Error
	default:
		err = db.Model(&models.Planned{}).Where("id = ?", entry.ID).Update("matched_tx_id", value).Error
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
