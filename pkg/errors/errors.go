package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes an error for handling and HTTP mapping
type ErrorType string

const (
	// ErrorTypeValidation indicates bad caller input (never retried)
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound indicates a missing resource (never retried)
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeConflict indicates a conflict with existing state; a conflict
	// produced by a concurrency race is safe to retry after re-reading state
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeBusinessRule indicates a domain rule violation
	ErrorTypeBusinessRule ErrorType = "BUSINESS_RULE"

	// ErrorTypeUnauthorized indicates missing or invalid credentials
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeForbidden indicates insufficient permissions
	ErrorTypeForbidden ErrorType = "FORBIDDEN"

	// ErrorTypeRateLimit indicates the caller exceeded a rate limit
	ErrorTypeRateLimit ErrorType = "RATE_LIMIT"

	// ErrorTypeInternal indicates an unexpected application failure
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeStorage indicates a backing-store failure
	ErrorTypeStorage ErrorType = "STORAGE"
)

// DomainError is the error type used throughout the engine. Every failure
// mode the API can surface is a DomainError with a stable code.
type DomainError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
}

// New creates a DomainError of the given type
func New(errorType ErrorType, code, message string) *DomainError {
	return &DomainError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so predeclared errors work with errors.Is
// even after WithDetail produced a copy
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy carrying the underlying error
func (e *DomainError) WithCause(cause error) *DomainError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetail returns a copy with one detail added. Predeclared errors are
// shared values; mutating them in place would leak details across requests.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	c := e.clone()
	c.Details[key] = value
	return c
}

// WithDetails returns a copy with all given details added
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	c := e.clone()
	for k, v := range details {
		c.Details[k] = v
	}
	return c
}

// WithMessage returns a copy with a more specific message
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

// WithRetryable returns a copy with the retryable flag set
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	c := e.clone()
	c.Retryable = retryable
	return c
}

// HTTPStatus maps the error type to an HTTP status code
func (e *DomainError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeBusinessRule:
		return http.StatusUnprocessableEntity
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (e *DomainError) clone() *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	return &DomainError{
		Type:      e.Type,
		Code:      e.Code,
		Message:   e.Message,
		Details:   details,
		Cause:     e.Cause,
		Retryable: e.Retryable,
	}
}

// AsDomainError extracts a DomainError from an error chain, or nil
func AsDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// IsType checks whether err is a DomainError of the given type
func IsType(err error, errType ErrorType) bool {
	de := AsDomainError(err)
	return de != nil && de.Type == errType
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return IsType(err, ErrorTypeNotFound) }

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return IsType(err, ErrorTypeConflict) }

// Wrap attaches context to an error, preserving a DomainError if present
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if de := AsDomainError(err); de != nil {
		return de.WithMessage("%s: %s", message, de.Message)
	}
	return New(ErrorTypeInternal, "INTERNAL_ERROR", message).WithCause(err)
}

// Wrapf attaches formatted context to an error
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// NewValidationError creates an ad-hoc validation error
func NewValidationError(message string) *DomainError {
	return New(ErrorTypeValidation, "VALIDATION_ERROR", message)
}

// NewInternalError creates an ad-hoc internal error
func NewInternalError(message string) *DomainError {
	return New(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// NewStorageError wraps a backing-store failure
func NewStorageError(operation string, err error) *DomainError {
	return New(ErrorTypeStorage, "STORAGE_ERROR",
		fmt.Sprintf("storage operation '%s' failed", operation)).
		WithCause(err).
		WithRetryable(true)
}
