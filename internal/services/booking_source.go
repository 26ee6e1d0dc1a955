package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
)

// bookingSource reads the bookings table owned by the intake system.
type bookingSource struct {
	db *gorm.DB
}

// NewBookingSource creates a BookingSource over the bookings table.
func NewBookingSource(db *gorm.DB) BookingSource {
	return &bookingSource{db: db}
}

// Each calls fn for every booking in id order, reading in batches.
func (s *bookingSource) Each(ctx context.Context, fn func(*models.Booking) error) error {
	return scanAll(ctx, s.db.Model(&models.Booking{}), fn)
}

// Get retrieves one booking.
func (s *bookingSource) Get(bookingID string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.Where("id = ?", bookingID).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &booking, nil
}
