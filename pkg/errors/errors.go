package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeDuplicateKey       = "DUPLICATE_KEY"
	CodeParseError         = "PARSE_ERROR"
	CodeExternalCall       = "EXTERNAL_CALL_ERROR"
	CodeTransportError     = "TRANSPORT_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrDuplicateKey creates a duplicate key error for an already-existing record
func ErrDuplicateKey(resource, key string) *AppError {
	return NewAppError(CodeDuplicateKey, fmt.Sprintf("%s %s already exists", resource, key), http.StatusConflict).
		WithDetail("key", key)
}

// ErrParse creates a parse error for a malformed interchange row
func ErrParse(message string) *AppError {
	return NewAppError(CodeParseError, message, http.StatusUnprocessableEntity)
}

// ErrExternalCall creates an error for a failed downstream call
func ErrExternalCall(system string, err error) *AppError {
	return NewAppError(CodeExternalCall, fmt.Sprintf("call to %s failed", system), http.StatusBadGateway).Wrap(err)
}

// ErrTransport creates an error for a failed transport operation
func ErrTransport(message string, err error) *AppError {
	return NewAppError(CodeTransportError, message, http.StatusBadGateway).Wrap(err)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrInternal creates an internal server error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrTimeout creates a timeout error
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsDuplicateKey reports whether err is a duplicate key AppError
func IsDuplicateKey(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == CodeDuplicateKey
}

// MapDomainError converts any error into an AppError
func MapDomainError(err error) *AppError {
	if appErr, ok := IsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
