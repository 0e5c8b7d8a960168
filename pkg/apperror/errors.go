package apperror

import (
	"errors"
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

// HasCode reports whether err (or anything it wraps) is an AppError with code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes referenced outside this package.
const (
	CodeInsufficientFunds   = "PAY_001"
	CodeInvalidAmount       = "PAY_002"
	CodeNotFound            = "PAY_004"
	CodeBelowMinimum        = "PAY_005"
	CodeStockExhausted      = "STK_001"
	CodeNoStockConfigured   = "STK_002"
	CodeInvalidState        = "STATE_001"
	CodeNotPending          = "STATE_002"
	CodeUnauthorized        = "AUTH_005"
	CodeCorrelationConflict = "RECON_001"
	CodeGatewayUnavailable  = "GW_001"
)

// ---- Callback security (SEC) ----

func ErrMissingSignature() *AppError {
	return New("SEC_001", "Missing callback signature", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

// ---- Ledger (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

func ErrDuplicateRequest() *AppError {
	return New("PAY_003", "Duplicate request", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrBelowMinimumWithdrawal(minimum string) *AppError {
	return New(CodeBelowMinimum, fmt.Sprintf("Minimum withdrawal amount is %s", minimum), http.StatusBadRequest)
}

// ---- Certificate stock (STK) ----

func ErrStockExhausted() *AppError {
	return New(CodeStockExhausted, "Certificate stock exhausted", http.StatusConflict)
}

func ErrNoStockConfigured() *AppError {
	return New(CodeNoStockConfigured, "No certificate stock configured for this product", http.StatusConflict)
}

// ---- State machine (STATE) ----

func ErrInvalidState(message string) *AppError {
	return New(CodeInvalidState, message, http.StatusConflict)
}

func ErrNotPending() *AppError {
	return New(CodeNotPending, "Transaction is not pending approval", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbiddenRole() *AppError {
	return New("AUTH_004", "Role not permitted for this resource", http.StatusForbidden)
}

func ErrUnauthorized() *AppError {
	return New(CodeUnauthorized, "You are not authorized to act on this resource", http.StatusForbidden)
}

// ---- Reconciliation & gateway ----

func ErrCorrelationConflict() *AppError {
	return New(CodeCorrelationConflict, "Correlation id already bound to another transaction", http.StatusConflict)
}

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap(CodeGatewayUnavailable, "Payout gateway unavailable", http.StatusBadGateway, err)
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
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}
