package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	// Validation
	InvalidInput    ErrorCode = "invalid_input"
	InvalidAmount   ErrorCode = "invalid_amount"
	InvalidTitle    ErrorCode = "invalid_title"
	InvalidCurrency ErrorCode = "invalid_currency"

	// Not found
	AccountNotFound     ErrorCode = "account_not_found"
	OwnerNotFound       ErrorCode = "owner_not_found"
	CurrencyNotFound    ErrorCode = "currency_not_found"
	TransactionNotFound ErrorCode = "transaction_not_found"

	// Domain failures surfaced to the caller
	NonZeroBalance ErrorCode = "non_zero_balance"

	// Conflicts
	VersionConflict  ErrorCode = "version_conflict"
	DuplicateAccount ErrorCode = "duplicate_account"
	DuplicateOwner   ErrorCode = "duplicate_owner"

	Forbidden          ErrorCode = "forbidden"
	ExternalDependency ErrorCode = "external_dependency"
	InternalError      ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError carrying the same code, so the predefined values
// below work as sentinels even after WithDetails or Wrap.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e with details attached.
func (e *AppError) WithDetails(details string) *AppError {
	c := *e
	c.Details = details
	return &c
}

// Wrap returns a copy of e carrying cause.
func (e *AppError) Wrap(cause error) *AppError {
	c := *e
	c.Cause = cause
	if cause != nil && c.Details == "" {
		c.Details = cause.Error()
	}
	return &c
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, InvalidTitle, InvalidCurrency:
		return http.StatusBadRequest
	case AccountNotFound, OwnerNotFound, CurrencyNotFound, TransactionNotFound:
		return http.StatusNotFound
	case NonZeroBalance:
		return http.StatusUnprocessableEntity
	case VersionConflict, DuplicateAccount, DuplicateOwner:
		return http.StatusConflict
	case Forbidden:
		return http.StatusForbidden
	case ExternalDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrInvalidInput        = NewAppError(InvalidInput, "invalid input")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "amount must be positive with at most two decimal places")
	ErrInvalidTitle        = NewAppError(InvalidTitle, "title is required")
	ErrInvalidCurrency     = NewAppError(InvalidCurrency, "currency code is required")
	ErrAccountNotFound     = NewAppError(AccountNotFound, "account not found")
	ErrOwnerNotFound       = NewAppError(OwnerNotFound, "owner not found")
	ErrCurrencyNotFound    = NewAppError(CurrencyNotFound, "currency not recognized")
	ErrTransactionNotFound = NewAppError(TransactionNotFound, "transaction not found")
	ErrNonZeroBalance      = NewAppError(NonZeroBalance, "account balance must be zero to delete it")
	ErrVersionConflict     = NewAppError(VersionConflict, "account was modified concurrently")
	ErrDuplicateAccount    = NewAppError(DuplicateAccount, "account already exists")
	ErrDuplicateOwner      = NewAppError(DuplicateOwner, "owner with this email already exists")
	ErrForbidden           = NewAppError(Forbidden, "caller does not own this account")
	ErrExternalDependency  = NewAppError(ExternalDependency, "exchange rate provider unavailable")
)

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *AppError {
	return NewAppError(InternalError, message).Wrap(cause)
}

func codeOf(err error) (ErrorCode, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == InvalidInput || code == InvalidAmount || code == InvalidTitle || code == InvalidCurrency)
}

func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == AccountNotFound || code == OwnerNotFound ||
		code == CurrencyNotFound || code == TransactionNotFound)
}

func IsDomainFailure(err error) bool {
	code, ok := codeOf(err)
	return ok && code == NonZeroBalance
}

func IsConflict(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == VersionConflict || code == DuplicateAccount || code == DuplicateOwner)
}

func IsExternalDependency(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ExternalDependency
}

// AsAppError returns err as an *AppError, converting unknown errors to internal_error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("an unexpected error occurred", err)
}
