// Package errors provides the error taxonomy of the finql storage layer.
// Every service-layer error is an *AppError so that callers can tell the
// expected outcomes (not found, conflict, invalid input) apart from backend
// failures without inspecting driver-specific error values.
package errors

import (
	"errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so that
// wrapped copies still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

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

// General errors.
var (
	ErrInvalidInput       = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound           = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrConflict           = &AppError{Code: "CONFLICT", Message: "Resource already exists", StatusCode: http.StatusConflict}
	ErrConstraintViolated = &AppError{Code: "CONSTRAINT_VIOLATION", Message: "Referenced resource does not exist or is still in use", StatusCode: http.StatusConflict}
	ErrConnectionFailed   = &AppError{Code: "CONNECTION_FAILED", Message: "Database is unreachable or misconfigured", StatusCode: http.StatusServiceUnavailable}
	ErrInternalServer     = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Asset and currency errors.
var (
	ErrAssetNotFound    = &AppError{Code: "ASSET_NOT_FOUND", Message: "Asset not found", StatusCode: http.StatusNotFound}
	ErrCurrencyNotFound = &AppError{Code: "CURRENCY_NOT_FOUND", Message: "Currency not found", StatusCode: http.StatusNotFound}
	ErrDuplicateAsset   = &AppError{Code: "DUPLICATE_ASSET", Message: "An asset with this name or code already exists", StatusCode: http.StatusConflict}
	ErrInvalidAsset     = &AppError{Code: "INVALID_ASSET", Message: "Invalid asset data", StatusCode: http.StatusBadRequest}
	ErrAssetNotStored   = &AppError{Code: "ASSET_NOT_STORED", Message: "Asset has not been stored yet", StatusCode: http.StatusNotFound}
)

// Ticker and quote errors.
var (
	ErrTickerNotFound   = &AppError{Code: "TICKER_NOT_FOUND", Message: "Ticker not found", StatusCode: http.StatusNotFound}
	ErrQuoteNotFound    = &AppError{Code: "QUOTE_NOT_FOUND", Message: "No quote found", StatusCode: http.StatusNotFound}
	ErrConversionFailed = &AppError{Code: "CONVERSION_FAILED", Message: "Currency conversion failed", StatusCode: http.StatusUnprocessableEntity}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransaction  = &AppError{Code: "INVALID_TRANSACTION", Message: "Invalid transaction data", StatusCode: http.StatusBadRequest}
)

// Object store errors.
var (
	ErrObjectNotFound  = &AppError{Code: "OBJECT_NOT_FOUND", Message: "Object not found", StatusCode: http.StatusNotFound}
	ErrDuplicateObject = &AppError{Code: "DUPLICATE_OBJECT", Message: "An object with this id already exists", StatusCode: http.StatusConflict}
)

// IsNotFound reports whether err is a lookup that yielded no rows.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsConflict reports whether err is a uniqueness or foreign-key violation.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsInvalid reports whether err was caused by malformed input.
func IsInvalid(err error) bool { return hasStatus(err, http.StatusBadRequest) }

// IsConnectionFailure reports whether err means the backend could not be reached.
func IsConnectionFailure(err error) bool { return hasStatus(err, http.StatusServiceUnavailable) }

func hasStatus(err error, status int) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.StatusCode == status
}
