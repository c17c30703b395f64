package apperror

import (
	"fmt"
	"net/http"
)

// AppError carries a client-facing code and status along with the internal cause.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // not exposed to clients
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

// Wrap attaches err as the cause of a new AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Is matches AppErrors by code so callers can use errors.Is with the constructors below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ---- Ledger (LED) ----
// All ledger rejections are client errors raised before commit.

func ErrWalletNotFound() *AppError {
	return New("LED_001", "Wallet not found", http.StatusBadRequest)
}

func ErrDuplicateTransaction() *AppError {
	return New("LED_002", "Transaction with this txid already exists", http.StatusBadRequest)
}

func ErrNegativeBalance() *AppError {
	return New("LED_003", "Transaction would make wallet balance negative", http.StatusBadRequest)
}

func ErrInvalidAmount(err error) *AppError {
	return Wrap("LED_004", "Invalid amount", http.StatusBadRequest, err)
}

// ---- Validation & Resources ----

// Validation returns a VAL_001 error with a caller supplied message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Wallet is busy, lock acquisition timed out", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
