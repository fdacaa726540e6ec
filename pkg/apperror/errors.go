package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrInsufficientBalance() *AppError {
	return New("LED_001", "Insufficient wallet balance", http.StatusUnprocessableEntity)
}

func ErrDuplicateLedgerReference() *AppError {
	return New("LED_002", "Ledger entry already exists for this reference", http.StatusConflict)
}

// ---- Inbound payments (PMT) ----

func ErrInvalidAmount() *AppError {
	return New("PMT_001", "Invalid amount", http.StatusBadRequest)
}

func ErrConflictingResolution() *AppError {
	return New("PMT_002", "Payment already resolved with a different action", http.StatusConflict)
}

func ErrIllegalTransition(from, to string) *AppError {
	return New("PMT_003", fmt.Sprintf("Illegal status transition %s -> %s", from, to), http.StatusConflict)
}

func ErrWalletRequired() *AppError {
	return New("PMT_004", "A target wallet is required to credit this payment", http.StatusBadRequest)
}

// ---- Payouts (PYT) ----

func ErrNothingToDisburse() *AppError {
	return New("PYT_001", "No disbursable balances for this SACCO and period", http.StatusBadRequest)
}

func ErrBatchNotSubmittable() *AppError {
	return New("PYT_002", "Batch has no pending items to submit", http.StatusConflict)
}

func ErrItemNotRetryable() *AppError {
	return New("PYT_003", "Payout item is not in a retryable state", http.StatusConflict)
}

func ErrItemNotCancellable() *AppError {
	return New("PYT_004", "Payout item is not in a cancellable state", http.StatusConflict)
}

// ---- Admin & auth (ADM) ----

func ErrNotFound(entity string) *AppError {
	return New("ADM_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidToken() *AppError {
	return New("ADM_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("ADM_003", "Operation not permitted", http.StatusForbidden)
}

func ErrRateLimitExceeded() *AppError {
	return New("ADM_004", "Too many requests", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrProviderUnavailable(err error) *AppError {
	return Wrap("SYS_003", "Disbursement provider unavailable", http.StatusBadGateway, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a generic 400 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
