package apperror

import (
	"fmt"
	"net/http"
)

// Stable error codes. Clients and tests match on these, never on messages.
const (
	CodeInsufficientBalance = "TRS_001"
	CodeCallerNotOperator   = "TRS_002"
	CodeInvalidAmount       = "TRS_003"
	CodeInvalidStakeBounds  = "TRS_004"

	CodeStakeOutOfBounds   = "GAM_001"
	CodeGameAlreadySettled = "GAM_002"
	CodeInvalidOutcome     = "GAM_003"

	CodeNotFound = "RES_001"

	CodeInvalidToken     = "AUTH_001"
	CodeInvalidSignature = "AUTH_002"
	CodeChallengeExpired = "AUTH_003"

	CodeValidation        = "VAL_001"
	CodeRateLimitExceeded = "SYS_429"
	CodeInternal          = "SYS_001"
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

// Is reports whether target is an *AppError carrying the same code, so
// errors.Is(err, apperror.ErrCallerNotOperator()) works across wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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

// ---- Treasury (TRS) ----

func ErrInsufficientBalance() *AppError {
	return New(CodeInsufficientBalance, "Insufficient treasury balance", http.StatusUnprocessableEntity)
}

func ErrCallerNotOperator() *AppError {
	return New(CodeCallerNotOperator, "Caller is not the treasury operator", http.StatusForbidden)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

func ErrInvalidStakeBounds(min, max int64) *AppError {
	return New(CodeInvalidStakeBounds,
		fmt.Sprintf("Stake bounds would be inverted (min %d, max %d)", min, max),
		http.StatusUnprocessableEntity)
}

// ---- Games (GAM) ----

func ErrStakeOutOfBounds(stake, min, max int64) *AppError {
	return New(CodeStakeOutOfBounds,
		fmt.Sprintf("Stake %d outside allowed range [%d, %d]", stake, min, max),
		http.StatusUnprocessableEntity)
}

func ErrGameAlreadySettled() *AppError {
	return New(CodeGameAlreadySettled, "Game has already been settled", http.StatusConflict)
}

func ErrInvalidOutcome() *AppError {
	return New(CodeInvalidOutcome, "Invalid game outcome", http.StatusBadRequest)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid signature", http.StatusUnauthorized)
}

func ErrChallengeExpired() *AppError {
	return New(CodeChallengeExpired, "Login challenge expired or already used", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}
