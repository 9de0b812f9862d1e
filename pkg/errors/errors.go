package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternal          = errors.New("internal error")
	ErrConflict          = errors.New("conflict")
	ErrServiceUnavail    = errors.New("service unavailable")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// ErrInvalidAmount and ErrInvalidQuantity are specializations of
// ErrInvalidInput: errors.Is matches both the specific and the generic sentinel.
var (
	ErrInvalidAmount   = fmt.Errorf("%w: amount", ErrInvalidInput)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity", ErrInvalidInput)
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidAmount creates a 400 error for a missing, non-positive or malformed money amount.
func InvalidAmount(message string) *AppError {
	return &AppError{
		Code:    "INVALID_AMOUNT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidAmount,
	}
}

// InvalidQuantity creates a 400 error for a missing or non-positive quantity.
func InvalidQuantity(message string) *AppError {
	return &AppError{
		Code:    "INVALID_QUANTITY",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidQuantity,
	}
}

// InsufficientStock creates a 400 error when a product cannot cover the requested quantity.
func InsufficientStock(productID string, available, requested int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("product %s has %d units in stock, %d requested", productID, available, requested),
		Status:  http.StatusBadRequest,
		Err:     ErrInsufficientStock,
	}
}

// InsufficientBalance creates a 400 error when a wallet cannot cover a sale total.
func InsufficientBalance(balance, required decimal.Decimal) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: fmt.Sprintf("wallet balance %s is less than the required %s", balance.StringFixed(2), required.StringFixed(2)),
		Status:  http.StatusBadRequest,
		Err:     ErrInsufficientFunds,
	}
}

// InsufficientFunds creates a 400 error when a wallet cannot cover a deduction.
func InsufficientFunds(balance, amount decimal.Decimal) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: fmt.Sprintf("cannot deduct %s from a balance of %s", amount.StringFixed(2), balance.StringFixed(2)),
		Status:  http.StatusBadRequest,
		Err:     ErrInsufficientFunds,
	}
}

// Unauthorized creates a 401 error. It signals a missing or invalid credential.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error. It signals a valid credential without the required permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error for concurrent modification. Callers may retry
// after re-reading current state.
func Conflict(message string, err error) *AppError {
	if err == nil {
		err = ErrConflict
	} else {
		err = fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

// Internal creates a 500 error. The cause is kept for logging and never
// reaches the client.
func Internal(err error) *AppError {
	if err == nil {
		err = ErrInternal
	} else {
		err = fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable reports whether the operation that produced err may succeed if
// repeated against fresh state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrServiceUnavail)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
