package services

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
)

// cacheService reads the caches written by the aggregation jobs.
type cacheService struct {
	db *gorm.DB
}

// NewCacheService creates a new CacheServicer.
func NewCacheService(db *gorm.DB) CacheServicer {
	return &cacheService{db: db}
}

func dayRange(q *gorm.DB, column, from, to string) *gorm.DB {
	if from != "" {
		q = q.Where(column+" >= ?", from)
	}
	if to != "" {
		q = q.Where(column+" <= ?", to)
	}
	return q
}

// AccountDaily returns the daily rows in the inclusive range.
func (s *cacheService) AccountDaily(from, to string) ([]models.AccountDaily, error) {
	rows := []models.AccountDaily{}
	if err := dayRange(s.db, "date", from, to).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// PnLMonthly returns the monthly rows in the inclusive YYYY-MM range.
func (s *cacheService) PnLMonthly(fromMonth, toMonth string) ([]models.PnLMonthly, error) {
	rows := []models.PnLMonthly{}
	if err := dayRange(s.db, "month", fromMonth, toMonth).Order("month ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// SalesDaily returns the sales rows of one date basis.
func (s *cacheService) SalesDaily(basis models.DateBasis, from, to string) ([]models.SalesDaily, error) {
	rows := []models.SalesDaily{}
	q := dayRange(s.db.Where("basis = ?", basis), "date", from, to)
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// SalesDailyByOperator returns the per-operator sales rows of one date
// basis. An empty operator returns every operator.
func (s *cacheService) SalesDailyByOperator(basis models.DateBasis, from, to, operator string) ([]models.SalesDailyOperator, error) {
	rows := []models.SalesDailyOperator{}
	q := dayRange(s.db.Where("basis = ?", basis), "date", from, to)
	if operator != "" {
		q = q.Where("operator = ?", operator)
	}
	if err := q.Order("date ASC, operator ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// Founders returns the founders document.
func (s *cacheService) Founders() (*models.FoundersPayload, error) {
	var payload models.FoundersPayload
	if err := s.document(DocumentFounders, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Overview returns the overview document.
func (s *cacheService) Overview() (*models.OverviewPayload, error) {
	var payload models.OverviewPayload
	if err := s.document(DocumentOverview, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (s *cacheService) document(name string, out interface{}) error {
	var doc models.CacheDocument
	if err := s.db.Where("name = ?", name).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.WithMessage(apperrors.ErrNotFound, "cache "+name+" has not been built yet")
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := json.Unmarshal(doc.Payload, out); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
