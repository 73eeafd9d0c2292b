// Package errors provides unified error handling across the gravyprompts service.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the foundation for error handling across both interfaces (CLI, HTTP).
// It standardizes error representation and categorization so that the search engine,
// the store and the transport layers agree on what a failure means.
//
// KEY RESPONSIBILITIES:
// - Define standardized error codes and categories
// - Provide the structured AppError type with severity and context
// - Let each interface format the same AppError its own way
//
// INTEGRATION POINTS:
// - internal/search/engine.go: store failures surface as RetrievalError()
// - internal/api/server.go: HTTPErrorHandler maps AppErrors to status codes and JSON
// - internal/validation/request.go: ValidationResult.ToAppError() converts validation failures
// - internal/cli: CLI actions print AppError messages
//
// USAGE PATTERNS:
// - Create errors: use constructor functions like ValidationError(), NotFoundError()
// - Wrap errors: use Wrap() to add a code to an existing error
// - Check types: use IsAppError() and GetAppError()
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Service errors
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"

	// Resource errors
	ErrCodeNotFound    ErrorCode = "NOT_FOUND"
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"

	// Storage errors
	ErrCodeRetrievalFailed ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeStorageFailure  ErrorCode = "STORAGE_FAILURE"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryService    ErrorCategory = "service"
	CategoryStorage    ErrorCategory = "storage"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput:
		return CategoryValidation, SeverityWarning

	case ErrCodeServiceUnavailable:
		return CategoryService, SeverityError
	case ErrCodeMethodNotAllowed, ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeRateLimited:
		return CategoryService, SeverityWarning

	case ErrCodeRetrievalFailed, ErrCodeStorageFailure:
		return CategoryStorage, SeverityError

	case ErrCodeInternalError:
		return CategorySystem, SeverityCritical
	default:
		return CategorySystem, SeverityError
	}
}

// isRetryable determines if an error is retryable based on its code.
// Retrying is the caller's business; the engine never retries itself.
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeRetrievalFailed, ErrCodeStorageFailure, ErrCodeRateLimited:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// Common error constructors for frequently used errors
func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

// RetrievalError is the single category every candidate fetch failure maps to
func RetrievalError(err error) *AppError {
	return Wrap(err, ErrCodeRetrievalFailed, "retrieval failed")
}

func RateLimitedError(action string) *AppError {
	return NewAppError(ErrCodeRateLimited, fmt.Sprintf("Too many requests for %s", action))
}

func MethodNotAllowedError(method string) *AppError {
	return NewAppError(ErrCodeMethodNotAllowed, fmt.Sprintf("Method %s not allowed", method))
}
