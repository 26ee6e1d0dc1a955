package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
)

// BookingRemainder is what a booking still expects to receive from the
// client and to pay the operator. Only actual or reconciled orders count
// as done.
type BookingRemainder struct {
	BookingID      string          `json:"booking_id"`
	PlannedIncome  decimal.Decimal `json:"planned_income"`
	PlannedExpense decimal.Decimal `json:"planned_expense"`
	DoneIncome     decimal.Decimal `json:"done_income"`
	DoneExpense    decimal.Decimal `json:"done_expense"`
	LeftIncome     decimal.Decimal `json:"left_income"`
	LeftExpense    decimal.Decimal `json:"left_expense"`
}

// ComputeRemainder derives the remainder of a booking from its orders.
func ComputeRemainder(booking *models.Booking, orders []models.Order) BookingRemainder {
	r := BookingRemainder{
		BookingID:      booking.ID,
		PlannedIncome:  booking.Brutto,
		PlannedExpense: booking.InternalNet,
		DoneIncome:     decimal.Zero,
		DoneExpense:    decimal.Zero,
	}
	for _, o := range orders {
		if o.BookingID != booking.ID || !o.Status.Done() {
			continue
		}
		switch o.Side {
		case models.SideIncome:
			r.DoneIncome = r.DoneIncome.Add(o.BaseAmount)
		case models.SideExpense:
			r.DoneExpense = r.DoneExpense.Add(o.BaseAmount)
		}
	}
	r.LeftIncome = decimal.Max(decimal.Zero, r.PlannedIncome.Sub(r.DoneIncome))
	r.LeftExpense = decimal.Max(decimal.Zero, r.PlannedExpense.Sub(r.DoneExpense))
	return r
}

// allocationService handles booking allocations of transactions.
type allocationService struct {
	db            *gorm.DB
	ledgerService LedgerServicer
	bookings      BookingSource
}

// NewAllocationService creates a new AllocationServicer.
func NewAllocationService(db *gorm.DB, ledgerService LedgerServicer, bookings BookingSource) AllocationServicer {
	return &allocationService{
		db:            db,
		ledgerService: ledgerService,
		bookings:      bookings,
	}
}

// UpsertAllocations replaces the whole order set of a transaction in one
// database transaction. An empty list removes every order.
func (s *allocationService) UpsertAllocations(transactionID string, allocations []AllocationInput) ([]models.Order, error) {
	transaction, err := s.ledgerService.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(allocations))
	orders := make([]models.Order, 0, len(allocations))
	for _, a := range allocations {
		bookingID := strings.TrimSpace(a.BookingID)
		if bookingID == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "booking id is required")
		}
		if seen[bookingID] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "booking "+bookingID+" is allocated twice")
		}
		seen[bookingID] = true
		if !a.BaseAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocated amount must be greater than zero")
		}
		if _, err := s.bookings.Get(bookingID); err != nil {
			return nil, err
		}

		orders = append(orders, newOrder(transaction, bookingID, a.BaseAmount.Round(2)))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].BookingID < orders[j].BookingID })

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_id = ?", transactionID).Delete(&models.Order{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(orders) == 0 {
			return nil
		}
		if err := tx.Create(&orders).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func newOrder(t *models.Transaction, bookingID string, baseAmount decimal.Decimal) models.Order {
	return models.Order{
		TransactionID: t.ID,
		BookingID:     bookingID,
		Date:          t.Date,
		Side:          t.Side,
		Status:        t.Status,
		BaseAmount:    baseAmount,
		AccountID:     t.AccountID,
		Currency:      t.Currency,
		Amount:        t.Amount,
	}
}

// GetAllocations lists the orders of a transaction.
func (s *allocationService) GetAllocations(transactionID string) ([]models.Order, error) {
	if _, err := s.ledgerService.GetTransaction(transactionID); err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := s.db.Where("transaction_id = ?", transactionID).Order("booking_id ASC").Find(&orders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// BookingRemainder computes the remainder of one booking.
func (s *allocationService) BookingRemainder(bookingID string) (*BookingRemainder, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := s.db.Where("booking_id = ?", bookingID).Find(&orders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	r := ComputeRemainder(booking, orders)
	return &r, nil
}

// syncOrders copies the parent's denormalized fields onto its orders.
func syncOrders(tx *gorm.DB, t *models.Transaction) error {
	if err := tx.Model(&models.Order{}).Where("transaction_id = ?", t.ID).Updates(map[string]interface{}{
		"date":       t.Date,
		"side":       t.Side,
		"status":     t.Status,
		"account_id": t.AccountID,
		"currency":   t.Currency,
		"amount":     t.Amount,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// setOrderStatus mirrors a parent status change onto its orders.
func setOrderStatus(tx *gorm.DB, transactionID string, status models.TransactionStatus) error {
	if err := tx.Model(&models.Order{}).Where("transaction_id = ?", transactionID).
		Update("status", status).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
