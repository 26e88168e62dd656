package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Err     error
	// Fields carries per-field messages for validation failures.
	Fields map[string]string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation builds a VALIDATION_ERROR carrying field level detail.
func Validation(message string, fields map[string]string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Fields:  fields,
	}
}

// Common error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidTarget     = "INVALID_TARGET"
	ErrCodeNotComplete       = "NOT_COMPLETE"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeAlreadyFriends    = "ALREADY_FRIENDS"
	ErrCodeDuplicateRequest  = "DUPLICATE_REQUEST"
	ErrCodeAlreadyProcessed  = "ALREADY_PROCESSED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// IsConflict reports whether err belongs to the conflict family
// (duplicate or already-applied state changes).
func IsConflict(err error) bool {
	switch CodeOf(err) {
	case ErrCodeAlreadyExists, ErrCodeAlreadyFriends, ErrCodeDuplicateRequest, ErrCodeAlreadyProcessed:
		return true
	}
	return false
}

// HTTPStatus maps an error onto the status code returned to API clients.
// Conflicts are reported as 400.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeValidation, ErrCodeInvalidTarget, ErrCodeNotComplete,
		ErrCodeAlreadyExists, ErrCodeAlreadyFriends, ErrCodeDuplicateRequest, ErrCodeAlreadyProcessed:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
