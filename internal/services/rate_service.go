package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crocus/internal/config"
	"crocus/internal/dates"
	apperrors "crocus/internal/errors"
	"crocus/internal/fx"
	"crocus/internal/logger"
	"crocus/internal/models"
)

// Rate sources recorded on published rows.
const (
	RateSourceManual = "manual"
	RateSourceFeed   = "feed"
)

// rateService stores daily pivot rate tables and pulls missing ones from a feed.
type rateService struct {
	db         *gorm.DB
	feed       RateFeed
	currencies []string
	log        *zap.SugaredLogger
}

// NewRateService creates a new RateServicer. feed may be nil, in which
// case only published tables are used.
func NewRateService(db *gorm.DB, feed RateFeed, currencies []string) RateServicer {
	return &rateService{
		db:         db,
		feed:       feed,
		currencies: currencies,
		log:        logger.Component("rates"),
	}
}

// PublishRates stores (or corrects) the table of a day.
func (s *rateService) PublishRates(day string, table fx.Table, source string) error {
	if !dates.Valid(day) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "rate date must be YYYY-MM-DD")
	}
	if len(table) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "rate table is empty")
	}

	rows := make([]models.FxRate, 0, len(table))
	for ccy, rate := range table {
		code := strings.ToUpper(ccy)
		if code == config.PivotCurrency {
			continue
		}
		if len(code) != 3 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid currency code "+ccy)
		}
		if !rate.IsPositive() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "rate for "+code+" must be positive")
		}
		rows = append(rows, models.FxRate{Date: day, Currency: code, Rate: rate, Source: source})
	}
	if len(rows) == 0 {
		return nil
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source"}),
	}).Create(&rows).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.log.Infow("Published rates", "date", day, "currencies", len(rows), "source", source)
	return nil
}

// EnsureRates returns the table for day. Configured currencies the day
// does not store yet are pulled from the feed and stored. Every currency
// still missing afterwards resolves through the rate book: its most
// recent earlier rate, else its latest rate. The second return value is
// the day of the table actually used.
func (s *rateService) EnsureRates(ctx context.Context, day string) (fx.Table, string, error) {
	if !dates.Valid(day) {
		return nil, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "rate date must be YYYY-MM-DD")
	}

	stored, err := s.loadDay(day)
	if err != nil {
		return nil, "", err
	}

	var feedErr error
	if missing := s.missingCurrencies(stored); s.feed != nil && len(missing) > 0 {
		fetched, err := s.feed.FetchTable(ctx, day, missing)
		if err != nil {
			s.log.Warnw("Rate feed returned errors", "date", day, "currencies", missing, "error", err)
			feedErr = err
		}
		if len(fetched) > 0 {
			if err := s.PublishRates(day, fetched, RateSourceFeed); err != nil {
				return nil, "", err
			}
		}
	}

	table, used, err := s.GetRates(day)
	if err != nil {
		if feedErr != nil && errors.Is(err, apperrors.ErrRatesNotFound) {
			return nil, "", apperrors.Wrap(apperrors.ErrRatesFeedFailed, feedErr)
		}
		return nil, "", err
	}
	if used != day {
		s.log.Infow("Using fallback rates", "date", day, "rates_date", used)
	}
	return table, used, nil
}

// missingCurrencies lists the configured currencies absent from table.
func (s *rateService) missingCurrencies(table fx.Table) []string {
	var missing []string
	for _, c := range s.currencies {
		code := strings.ToUpper(c)
		if code == config.PivotCurrency {
			continue
		}
		if _, ok := table[code]; !ok {
			missing = append(missing, code)
		}
	}
	return missing
}

// GetRates returns the stored table for day with the on-or-before and
// latest fallbacks.
func (s *rateService) GetRates(day string) (fx.Table, string, error) {
	book, err := s.RateBook()
	if err != nil {
		return nil, "", err
	}
	table, used, err := book.ForDate(day)
	if err != nil {
		if errors.Is(err, fx.ErrNoRates) {
			return nil, "", apperrors.ErrRatesNotFound
		}
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return table, used, nil
}

// RateBook loads every published table.
func (s *rateService) RateBook() (*fx.RateBook, error) {
	var rows []models.FxRate
	if err := s.db.Order("date ASC, currency ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	tables := make(map[string]fx.Table)
	for _, r := range rows {
		t, ok := tables[r.Date]
		if !ok {
			t = make(fx.Table)
			tables[r.Date] = t
		}
		t[r.Currency] = r.Rate
	}
	return fx.NewRateBook(tables), nil
}

func (s *rateService) loadDay(day string) (fx.Table, error) {
	var rows []models.FxRate
	if err := s.db.Where("date = ?", day).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	table := make(fx.Table, len(rows))
	for _, r := range rows {
		table[r.Currency] = r.Rate
	}
	return table, nil
}
