package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crocus/internal/config"
	"crocus/internal/dates"
	apperrors "crocus/internal/errors"
	"crocus/internal/fx"
	"crocus/internal/heuristics"
	"crocus/internal/logger"
	"crocus/internal/models"
)

// Aggregation job names.
const (
	JobAccountDaily   = "account_daily"
	JobPnLMonthly     = "pnl_monthly"
	JobSalesDashboard = "sales_dashboard"
	JobFounders       = "founders"
	JobOverview       = "overview"
	JobAll            = "all"
)

// Cache document names.
const (
	DocumentFounders = "founders"
	DocumentOverview = "overview"
)

// JobOrder is the order in which JobAll runs the jobs.
var JobOrder = []string{JobAccountDaily, JobPnLMonthly, JobSalesDashboard, JobFounders, JobOverview}

// IsJobName reports whether name is a known job or JobAll.
func IsJobName(name string) bool {
	if name == JobAll {
		return true
	}
	for _, n := range JobOrder {
		if n == name {
			return true
		}
	}
	return false
}

// Default windows, relative to today.
const (
	accountDailyBackDays  = 30
	accountDailyAheadDays = 90
	cashFlowDays          = 30
	overviewListSize      = 10
)

// JobWindow bounds a windowed job. Empty bounds take the job's default.
type JobWindow struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// PnLDiagnostics counts what the P&L job included and why it left
// transactions out.
type PnLDiagnostics struct {
	Included int            `json:"included"`
	Excluded map[string]int `json:"excluded"`
}

// jobService recomputes the derived caches.
type jobService struct {
	db            *gorm.DB
	ledgerService LedgerServicer
	rateService   RateServicer
	bookings      BookingSource
	rules         config.Rules
	now           func() time.Time
	log           *zap.SugaredLogger
}

// NewJobService creates a new JobServicer. now may be nil.
func NewJobService(
	db *gorm.DB,
	ledgerService LedgerServicer,
	rateService RateServicer,
	bookings BookingSource,
	rules config.Rules,
	now func() time.Time,
) JobServicer {
	if now == nil {
		now = time.Now
	}
	return &jobService{
		db:            db,
		ledgerService: ledgerService,
		rateService:   rateService,
		bookings:      bookings,
		rules:         rules,
		now:           now,
		log:           logger.Component("jobs"),
	}
}

func (s *jobService) today() string {
	return dates.Format(s.now())
}

// Run executes one job, or every job in JobOrder for JobAll, and returns
// the resulting status records. With JobAll a failing job does not stop
// the ones after it; the first error is returned.
func (s *jobService) Run(ctx context.Context, name string, window JobWindow) ([]models.JobStatus, error) {
	names := []string{name}
	if name == JobAll {
		names = JobOrder
	} else if !IsJobName(name) {
		return nil, apperrors.WithMessage(apperrors.ErrUnknownJob, "unknown job "+name)
	}

	var firstErr error
	statuses := make([]models.JobStatus, 0, len(names))
	for _, n := range names {
		var err error
		switch n {
		case JobAccountDaily:
			err = s.AccountDaily(ctx, window)
		case JobPnLMonthly:
			err = s.PnLMonthly(ctx, window)
		case JobSalesDashboard:
			err = s.SalesDashboard(ctx)
		case JobFounders:
			err = s.Founders(ctx)
		case JobOverview:
			err = s.Overview(ctx)
		}
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code != apperrors.ErrJobFailed.Code {
				return statuses, err
			}
			if firstErr == nil {
				firstErr = err
			}
		}

		status, statusErr := s.Status(n)
		if statusErr != nil {
			return statuses, statusErr
		}
		statuses = append(statuses, *status)
	}
	return statuses, firstErr
}

// track writes the running status, runs fn and records its outcome.
// fn returns optional diagnostics to store with the status.
func (s *jobService) track(name, from, to string, fn func() (interface{}, error)) error {
	started := s.now().UTC()
	status := models.JobStatus{Name: name, State: models.JobRunning, From: from, To: to, StartedAt: started}
	if err := s.saveStatus(&status); err != nil {
		return err
	}
	s.log.Infow("Job started", "job", name, "from", from, "to", to)

	diagnostics, runErr := fn()

	finished := s.now().UTC()
	status.FinishedAt = &finished
	if diagnostics != nil {
		raw, err := json.Marshal(diagnostics)
		if err == nil {
			status.Diagnostics = datatypes.JSON(raw)
		}
	}
	if runErr != nil {
		status.State = models.JobError
		status.Message = errorDetail(runErr)
		s.log.Errorw("Job failed", "job", name, "error", runErr)
	} else {
		status.State = models.JobDone
		s.log.Infow("Job finished", "job", name, "duration", finished.Sub(started).String())
	}

	if err := s.saveStatus(&status); err != nil {
		return err
	}
	if runErr != nil {
		return apperrors.Wrap(apperrors.ErrJobFailed, runErr)
	}
	return nil
}

// errorDetail keeps the internal cause that AppError hides from clients.
func errorDetail(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Internal != nil {
		return appErr.Message + ": " + appErr.Internal.Error()
	}
	return err.Error()
}

func (s *jobService) saveStatus(status *models.JobStatus) error {
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(status).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Status returns the last status record of a job.
func (s *jobService) Status(name string) (*models.JobStatus, error) {
	if name == JobAll || !IsJobName(name) {
		return nil, apperrors.WithMessage(apperrors.ErrUnknownJob, "unknown job "+name)
	}
	var status models.JobStatus
	if err := s.db.Where("name = ?", name).First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrNotFound, "job "+name+" has not run yet")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &status, nil
}

// ListStatus returns every recorded job status.
func (s *jobService) ListStatus() ([]models.JobStatus, error) {
	var statuses []models.JobStatus
	if err := s.db.Order("name ASC").Find(&statuses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return statuses, nil
}

// converter builds a fail-closed converter over every stored rate table.
func (s *jobService) converter() (*fx.Converter, error) {
	book, err := s.rateService.RateBook()
	if err != nil {
		return nil, err
	}
	return fx.NewConverter(book), nil
}

// pivotOf prefers the stored base amount and converts live when it is
// missing. Zero means no rate was available.
func pivotOf(base, amount decimal.Decimal, currency, day string, conv *fx.Converter) decimal.Decimal {
	if !base.IsZero() || amount.IsZero() {
		return base
	}
	return conv.ToPivot(amount, currency, day)
}

// AccountDaily rebuilds one planned/actual row per day of the window.
func (s *jobService) AccountDaily(ctx context.Context, window JobWindow) error {
	today := s.today()
	from, to := window.From, window.To
	if from == "" {
		from, _ = dates.AddDays(today, -accountDailyBackDays)
	}
	if to == "" {
		to, _ = dates.AddDays(today, accountDailyAheadDays)
	}
	days, err := dates.EachDay(from, to)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	return s.track(JobAccountDaily, from, to, func() (interface{}, error) {
		conv, err := s.converter()
		if err != nil {
			return nil, err
		}
		planned, err := s.ledgerService.PlannedEntries(ctx, from, to)
		if err != nil {
			return nil, err
		}
		actuals, err := s.ledgerService.QueryByDateRange(ctx, RangeActual, from, to,
			models.TransactionStatusActual, models.TransactionStatusReconciled)
		if err != nil {
			return nil, err
		}

		rows := make(map[string]*models.AccountDaily, len(days))
		for _, d := range days {
			rows[d] = &models.AccountDaily{Date: d}
		}

		for _, e := range planned {
			row, ok := rows[e.TargetDate]
			if !ok {
				continue
			}
			v := pivotOf(e.BaseAmount, e.Amount, e.Currency, e.TargetDate, conv)
			matched := e.Matched()
			overdue := !matched && e.TargetDate < today
			switch e.Side {
			case models.SideIncome:
				row.PlannedIncome = row.PlannedIncome.Add(v)
				if matched {
					row.MatchedIncome = row.MatchedIncome.Add(v)
				}
				if overdue {
					row.OverdueIncome = row.OverdueIncome.Add(v)
				}
			case models.SideExpense:
				row.PlannedExpense = row.PlannedExpense.Add(v)
				if matched {
					row.MatchedExpense = row.MatchedExpense.Add(v)
				}
				if overdue {
					row.OverdueExpense = row.OverdueExpense.Add(v)
				}
			}
		}

		for i := range actuals {
			t := &actuals[i]
			if t.Kind == models.MovementTransfer {
				continue
			}
			day := t.EffectiveDate()
			row, ok := rows[day]
			if !ok {
				continue
			}
			v := pivotOf(t.BaseAmount, t.Amount, t.Currency, day, conv)
			switch t.Side {
			case models.SideIncome:
				row.ActualIncome = row.ActualIncome.Add(v)
			case models.SideExpense:
				row.ActualExpense = row.ActualExpense.Add(v)
			}
		}

		out := make([]models.AccountDaily, 0, len(days))
		for _, d := range days {
			out = append(out, *rows[d])
		}

		return nil, s.db.Transaction(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "date"}},
				UpdateAll: true,
			}).CreateInBatches(&out, scanBatchSize).Error
		})
	})
}

// PnLMonthly rebuilds the P&L of every month touched by the window.
func (s *jobService) PnLMonthly(ctx context.Context, window JobWindow) error {
	today := s.today()
	from, to := window.From, window.To
	if from == "" {
		from = today[:4] + "-01-01"
	}
	if to == "" {
		to = today
	}
	months, err := dates.EachMonth(from, to)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	// Whole months only, so a narrow window never leaves a partial total.
	from, _, _ = dates.MonthBounds(months[0])
	_, to, _ = dates.MonthBounds(months[len(months)-1])

	return s.track(JobPnLMonthly, from, to, func() (interface{}, error) {
		conv, err := s.converter()
		if err != nil {
			return nil, err
		}
		var categories []models.Category
		if err := s.db.Find(&categories).Error; err != nil {
			return nil, err
		}
		byID := make(map[string]*models.Category, len(categories))
		for i := range categories {
			byID[categories[i].ID] = &categories[i]
		}

		txs, err := s.ledgerService.QueryByDateRange(ctx, RangeActual, from, to,
			models.TransactionStatusActual, models.TransactionStatusReconciled)
		if err != nil {
			return nil, err
		}

		rows := make(map[string]*models.PnLMonthly, len(months))
		for _, m := range months {
			rows[m] = &models.PnLMonthly{Month: m}
		}
		diag := &PnLDiagnostics{Excluded: map[string]int{}}

		for i := range txs {
			t := &txs[i]
			var category *models.Category
			if t.CategoryID != nil {
				category = byID[*t.CategoryID]
				if category == nil && t.Kind != models.MovementTransfer {
					diag.Excluded[ExcludedUnknownCategory]++
					continue
				}
			}
			bucket, reason := ClassifyPnL(t, category, s.rules.CogsMarkers)
			if reason != "" {
				diag.Excluded[reason]++
				continue
			}

			day := t.EffectiveDate()
			v := pivotOf(t.BaseAmount, t.Amount, t.Currency, day, conv)
			if v.IsZero() && !t.Amount.IsZero() {
				diag.Excluded[ExcludedNoRate]++
				continue
			}
			row, ok := rows[dates.Month(day)]
			if !ok {
				continue
			}

			v = signedForBucket(bucket, t.Kind, v)
			switch bucket {
			case PnLRevenue:
				row.Revenue = row.Revenue.Add(v)
			case PnLCogs:
				row.Cogs = row.Cogs.Add(v)
			case PnLOpex:
				row.Opex = row.Opex.Add(v)
			}
			diag.Included++
		}

		out := make([]models.PnLMonthly, 0, len(months))
		for _, m := range months {
			row := rows[m]
			row.Gross = row.Revenue.Sub(row.Cogs)
			row.Net = row.Gross.Sub(row.Opex)
			out = append(out, *row)
		}

		return diag, s.db.Transaction(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "month"}},
				UpdateAll: true,
			}).Create(&out).Error
		})
	})
}

type salesKey struct {
	basis    models.DateBasis
	date     string
	operator string
}

type salesBucket struct {
	bookings int
	brutto   decimal.Decimal
	owners   models.OwnerAmounts
}

func (b *salesBucket) add(booking *models.Booking, split models.OwnerAmounts) {
	b.bookings++
	b.brutto = b.brutto.Add(booking.Brutto)
	if b.owners == nil {
		b.owners = make(models.OwnerAmounts)
	}
	for id, v := range split {
		b.owners[id] = b.owners[id].Add(v)
	}
}

// SalesDashboard rebuilds both sales caches from every booking, once by
// creation date and once by check-in date.
func (s *jobService) SalesDashboard(ctx context.Context) error {
	return s.track(JobSalesDashboard, "", "", func() (interface{}, error) {
		overall := make(map[salesKey]*salesBucket)
		byOperator := make(map[salesKey]*salesBucket)

		bucket := func(m map[salesKey]*salesBucket, k salesKey) *salesBucket {
			b, ok := m[k]
			if !ok {
				b = &salesBucket{}
				m[k] = b
			}
			return b
		}

		err := s.bookings.Each(ctx, func(b *models.Booking) error {
			split, _ := SplitCommission(b, s.rules.Owners, s.rules.DefaultBookingType)
			bases := map[models.DateBasis]string{models.BasisCreated: b.CreatedDate}
			if b.CheckInDate != nil && *b.CheckInDate != "" {
				bases[models.BasisCheckIn] = *b.CheckInDate
			}
			for basis, day := range bases {
				if !dates.Valid(day) {
					s.log.Warnw("Booking has an invalid date", "booking_id", b.ID, "basis", basis, "date", day)
					continue
				}
				bucket(overall, salesKey{basis: basis, date: day}).add(b, split)
				bucket(byOperator, salesKey{basis: basis, date: day, operator: b.Operator}).add(b, split)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		daily := make([]models.SalesDaily, 0, len(overall))
		for k, b := range overall {
			daily = append(daily, models.SalesDaily{
				Basis: k.basis, Date: k.date, Bookings: b.bookings, Brutto: b.brutto,
				Owners: datatypes.NewJSONType(b.owners),
			})
		}
		sort.Slice(daily, func(i, j int) bool {
			if daily[i].Basis != daily[j].Basis {
				return daily[i].Basis < daily[j].Basis
			}
			return daily[i].Date < daily[j].Date
		})

		operators := make([]models.SalesDailyOperator, 0, len(byOperator))
		for k, b := range byOperator {
			operators = append(operators, models.SalesDailyOperator{
				Basis: k.basis, Date: k.date, Operator: k.operator, Bookings: b.bookings, Brutto: b.brutto,
				Owners: datatypes.NewJSONType(b.owners),
			})
		}
		sort.Slice(operators, func(i, j int) bool {
			a, b := operators[i], operators[j]
			if a.Basis != b.Basis {
				return a.Basis < b.Basis
			}
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			return a.Operator < b.Operator
		})

		return nil, s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SalesDaily{}).Error; err != nil {
				return err
			}
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SalesDailyOperator{}).Error; err != nil {
				return err
			}
			if len(daily) > 0 {
				if err := tx.CreateInBatches(&daily, scanBatchSize).Error; err != nil {
					return err
				}
			}
			if len(operators) > 0 {
				if err := tx.CreateInBatches(&operators, scanBatchSize).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// Founders rebuilds the owner movement ledger: each booking's commission
// split scaled by its completion ratio, plus owner payouts and
// contributions booked as plain transactions.
func (s *jobService) Founders(ctx context.Context) error {
	return s.track(JobFounders, "", "", func() (interface{}, error) {
		payload, err := s.buildFounders(ctx)
		if err != nil {
			return nil, err
		}
		for _, issue := range payload.Issues {
			s.log.Warnw("Founders data issue", "issue", issue)
		}
		return map[string]int{"movements": len(payload.Movements), "issues": len(payload.Issues)},
			s.saveDocument(DocumentFounders, payload)
	})
}

func (s *jobService) buildFounders(ctx context.Context) (*models.FoundersPayload, error) {
	known := make(map[string]bool, len(s.rules.Owners))
	totals := make(map[string]decimal.Decimal, len(s.rules.Owners))
	for _, o := range s.rules.Owners {
		known[o.ID] = true
		totals[o.ID] = decimal.Zero
	}
	payload := &models.FoundersPayload{Movements: []models.OwnerMovement{}, Totals: totals, Issues: []string{}}

	var bookings []models.Booking
	bookingIDs := make(map[string]bool)
	if err := s.bookings.Each(ctx, func(b *models.Booking) error {
		bookings = append(bookings, *b)
		bookingIDs[b.ID] = true
		return nil
	}); err != nil {
		return nil, err
	}

	collected := make(map[string]decimal.Decimal)
	paid := make(map[string]decimal.Decimal)
	allocated := make(map[string]bool)
	err := scanAll(ctx, s.db.Model(&models.Order{}), func(o *models.Order) error {
		allocated[o.TransactionID] = true
		if !bookingIDs[o.BookingID] {
			payload.Issues = append(payload.Issues,
				fmt.Sprintf("order %s references unknown booking %s", o.ID, o.BookingID))
			return nil
		}
		if !o.Status.Done() {
			return nil
		}
		switch o.Side {
		case models.SideIncome:
			collected[o.BookingID] = collected[o.BookingID].Add(o.BaseAmount)
		case models.SideExpense:
			paid[o.BookingID] = paid[o.BookingID].Add(o.BaseAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	add := func(m models.OwnerMovement) {
		if !known[m.OwnerID] {
			payload.Issues = append(payload.Issues,
				fmt.Sprintf("%s %s attributes to unknown owner %s", m.Source, m.SourceID, m.OwnerID))
			return
		}
		payload.Movements = append(payload.Movements, m)
		totals[m.OwnerID] = totals[m.OwnerID].Add(m.Amount)
	}

	for i := range bookings {
		b := &bookings[i]
		split, rule := SplitCommission(b, s.rules.Owners, s.rules.DefaultBookingType)
		ratio := CompletionRatio(b, collected[b.ID], paid[b.ID])
		for _, id := range ownerIDs(split) {
			amount := fx.Round2(split[id].Mul(ratio))
			if amount.IsZero() {
				continue
			}
			add(models.OwnerMovement{
				Date:     b.CreatedDate,
				OwnerID:  id,
				Amount:   amount,
				Source:   models.OwnerMovementBooking,
				SourceID: b.ID,
				Rule:     rule,
				Note:     "completion " + ratio.StringFixed(4),
			})
		}
	}

	conv, err := s.converter()
	if err != nil {
		return nil, err
	}
	var counterparties []models.Counterparty
	if err := s.db.Find(&counterparties).Error; err != nil {
		return nil, err
	}
	counterpartyNames := make(map[string]string, len(counterparties))
	for _, c := range counterparties {
		counterpartyNames[c.ID] = c.Name
	}

	txs, err := s.ledgerService.QueryByDateRange(ctx, RangeActual, "", "",
		models.TransactionStatusActual, models.TransactionStatusReconciled)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		t := &txs[i]
		if t.Kind == models.MovementTransfer || allocated[t.ID] {
			continue
		}
		day := t.EffectiveDate()
		sign := decimal.NewFromInt(1)
		if t.Kind == models.MovementOut {
			sign = sign.Neg()
		}

		if splits := t.OwnerSplits.Data(); len(splits) > 0 {
			for _, id := range ownerIDs(splits) {
				if splits[id].IsZero() {
					continue
				}
				add(ownerMovement(t, day, id, fx.Round2(splits[id]).Mul(sign), "explicit_split"))
			}
			continue
		}

		amount := pivotOf(t.BaseAmount, t.Amount, t.Currency, day, conv).Mul(sign)
		if t.OwnerTag != nil && *t.OwnerTag != "" {
			add(ownerMovement(t, day, *t.OwnerTag, amount, "owner_tag"))
			continue
		}

		text := strings.Join([]string{t.Description, t.Note, counterpartyName(t, counterpartyNames)}, " ")
		if id, ok := heuristics.DetectOwner(text, s.rules.Owners); ok {
			add(ownerMovement(t, day, id, amount, "text_heuristic"))
		}
	}

	sort.SliceStable(payload.Movements, func(i, j int) bool {
		a, b := payload.Movements[i], payload.Movements[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.OwnerID < b.OwnerID
	})
	sort.Strings(payload.Issues)
	return payload, nil
}

func ownerMovement(t *models.Transaction, day, ownerID string, amount decimal.Decimal, rule string) models.OwnerMovement {
	return models.OwnerMovement{
		Date:     day,
		OwnerID:  ownerID,
		Amount:   amount,
		Source:   models.OwnerMovementTransaction,
		SourceID: t.ID,
		Rule:     rule,
		Note:     t.Description,
	}
}

func counterpartyName(t *models.Transaction, names map[string]string) string {
	if t.CounterpartyID == nil {
		return ""
	}
	return names[*t.CounterpartyID]
}

// Overview rebuilds the dashboard overview document.
func (s *jobService) Overview(ctx context.Context) error {
	today := s.today()
	return s.track(JobOverview, "", today, func() (interface{}, error) {
		payload, err := s.buildOverview(ctx, today)
		if err != nil {
			return nil, err
		}
		return nil, s.saveDocument(DocumentOverview, payload)
	})
}

func (s *jobService) buildOverview(ctx context.Context, today string) (*models.OverviewPayload, error) {
	conv, err := s.converter()
	if err != nil {
		return nil, err
	}

	var accounts []models.Account
	if err := s.db.Order("name ASC, id ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	txs, err := s.ledgerService.QueryByDateRange(ctx, RangeActual, "", "",
		models.TransactionStatusActual, models.TransactionStatusReconciled)
	if err != nil {
		return nil, err
	}
	planned, err := s.ledgerService.PlannedEntries(ctx, "", "")
	if err != nil {
		return nil, err
	}

	payload := &models.OverviewPayload{AsOf: today}

	// Balances in each account's own currency.
	native := make(map[string]decimal.Decimal, len(accounts))
	currencyOf := make(map[string]string, len(accounts))
	for _, a := range accounts {
		native[a.ID] = a.OpeningBalance
		currencyOf[a.ID] = a.Currency
	}
	post := func(accountID string, amount decimal.Decimal, currency, day string) {
		ccy, ok := currencyOf[accountID]
		if !ok {
			return
		}
		native[accountID] = native[accountID].Add(conv.Convert(amount, currency, ccy, day))
	}
	for i := range txs {
		t := &txs[i]
		day := t.EffectiveDate()
		switch t.Kind {
		case models.MovementIn:
			post(t.AccountID, t.Amount, t.Currency, day)
		case models.MovementOut:
			post(t.AccountID, t.Amount.Neg(), t.Currency, day)
		case models.MovementTransfer:
			post(t.AccountID, t.Amount.Neg(), t.Currency, day)
			if t.ToAccountID != nil {
				if t.ToAmount != nil {
					post(*t.ToAccountID, *t.ToAmount, currencyOf[*t.ToAccountID], day)
				} else {
					post(*t.ToAccountID, t.Amount, t.Currency, day)
				}
			}
		}
	}
	payload.Balances = make([]models.AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		payload.Balances = append(payload.Balances, models.AccountBalance{
			AccountID: a.ID,
			Name:      a.Name,
			Currency:  a.Currency,
			Native:    native[a.ID],
			Pivot:     conv.LatestToPivot(native[a.ID], a.Currency),
			Archived:  a.Archived,
		})
	}

	// Daily cash flow over the trailing window, today included.
	start, _ := dates.AddDays(today, -(cashFlowDays - 1))
	days, err := dates.EachDay(start, today)
	if err != nil {
		return nil, err
	}
	flow := make(map[string]*models.CashFlowDay, len(days))
	payload.CashFlow = make([]models.CashFlowDay, 0, len(days))
	for _, d := range days {
		flow[d] = &models.CashFlowDay{Date: d}
	}
	for i := range txs {
		t := &txs[i]
		day := t.EffectiveDate()
		row, ok := flow[day]
		if !ok || t.Kind == models.MovementTransfer {
			continue
		}
		v := pivotOf(t.BaseAmount, t.Amount, t.Currency, day, conv)
		if t.Kind == models.MovementIn {
			row.Inflow = row.Inflow.Add(v)
		} else {
			row.Outflow = row.Outflow.Add(v)
		}
	}
	for _, d := range days {
		row := flow[d]
		row.Net = row.Inflow.Sub(row.Outflow)
		payload.CashFlow = append(payload.CashFlow, *row)
	}

	// Planned entries are sorted ascending by target date.
	payload.Upcoming = []models.PlannedSummary{}
	payload.Overdue = []models.PlannedSummary{}
	for _, e := range planned {
		if e.Matched() || e.TargetDate < today || len(payload.Upcoming) == overviewListSize {
			continue
		}
		payload.Upcoming = append(payload.Upcoming, plannedSummary(e, conv))
	}
	for i := len(planned) - 1; i >= 0 && len(payload.Overdue) < overviewListSize; i-- {
		e := planned[i]
		if e.Matched() || e.TargetDate >= today {
			continue
		}
		payload.Overdue = append(payload.Overdue, plannedSummary(e, conv))
	}

	// Most recent first.
	payload.Recent = []models.RecentTransaction{}
	for i := len(txs) - 1; i >= 0 && len(payload.Recent) < overviewListSize; i-- {
		t := &txs[i]
		payload.Recent = append(payload.Recent, models.RecentTransaction{
			ID:          t.ID,
			Date:        t.EffectiveDate(),
			AccountID:   t.AccountID,
			Kind:        t.Kind,
			Amount:      t.Amount,
			Currency:    t.Currency,
			BaseAmount:  t.BaseAmount,
			Description: t.Description,
		})
	}
	return payload, nil
}

func plannedSummary(e PlannedEntry, conv *fx.Converter) models.PlannedSummary {
	return models.PlannedSummary{
		ID:         e.ID,
		Source:     string(e.Source),
		AccountID:  e.AccountID,
		Side:       e.Side,
		TargetDate: e.TargetDate,
		Amount:     e.Amount,
		Currency:   e.Currency,
		Pivot:      pivotOf(e.BaseAmount, e.Amount, e.Currency, e.TargetDate, conv),
	}
}

// saveDocument replaces a single-document cache.
func (s *jobService) saveDocument(name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	doc := models.CacheDocument{Name: name, Payload: datatypes.JSON(raw)}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload"}),
		}).Create(&doc).Error
	})
}
