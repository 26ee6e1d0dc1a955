// Package errors provides custom error types for the Crocus ledger API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Account errors.
var (
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrAccountArchived = &AppError{Code: "ACCOUNT_ARCHIVED", Message: "Account is archived", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse     = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing transactions", StatusCode: http.StatusConflict}
	ErrSystemCategory    = &AppError{Code: "SYSTEM_CATEGORY", Message: "System categories cannot be modified", StatusCode: http.StatusForbidden}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
)

// Counterparty errors.
var (
	ErrCounterpartyNotFound = &AppError{Code: "COUNTERPARTY_NOT_FOUND", Message: "Counterparty not found", StatusCode: http.StatusNotFound}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidMovementKind = &AppError{Code: "INVALID_MOVEMENT_KIND", Message: "Unsupported movement kind", StatusCode: http.StatusBadRequest}
	ErrSameAccountTransfer = &AppError{Code: "SAME_ACCOUNT_TRANSFER", Message: "Cannot transfer to the same account", StatusCode: http.StatusBadRequest}
	ErrInvalidStatusChange = &AppError{Code: "INVALID_STATUS_CHANGE", Message: "Transaction status cannot change this way", StatusCode: http.StatusConflict}
	ErrPlannedNotFound     = &AppError{Code: "PLANNED_NOT_FOUND", Message: "Planned entry not found", StatusCode: http.StatusNotFound}
	ErrPlannedMatched      = &AppError{Code: "PLANNED_ALREADY_MATCHED", Message: "Planned entry is already matched", StatusCode: http.StatusConflict}
)

// Booking errors.
var (
	ErrBookingNotFound = &AppError{Code: "BOOKING_NOT_FOUND", Message: "Booking not found", StatusCode: http.StatusNotFound}
)

// Import errors.
var (
	ErrImportNotFound  = &AppError{Code: "IMPORT_NOT_FOUND", Message: "Import batch not found", StatusCode: http.StatusNotFound}
	ErrEmptyStatement  = &AppError{Code: "EMPTY_STATEMENT", Message: "Statement contains no rows", StatusCode: http.StatusBadRequest}
	ErrImportReverted  = &AppError{Code: "IMPORT_ROLLED_BACK", Message: "Import batch was already rolled back", StatusCode: http.StatusConflict}
	ErrRatesNotFound   = &AppError{Code: "RATES_NOT_FOUND", Message: "No exchange rates available", StatusCode: http.StatusNotFound}
	ErrRatesFeedFailed = &AppError{Code: "RATES_FEED_FAILED", Message: "Exchange rate feed is unavailable", StatusCode: http.StatusBadGateway}
)

// Job errors.
var (
	ErrUnknownJob = &AppError{Code: "UNKNOWN_JOB", Message: "Unknown aggregation job", StatusCode: http.StatusNotFound}
	ErrJobFailed  = &AppError{Code: "JOB_FAILED", Message: "Aggregation job failed", StatusCode: http.StatusInternalServerError}
)
