package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies marketplace API failures
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeQuota     ErrorType = "quota"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeTransient ErrorType = "transient"
	ErrorTypeTimeout   ErrorType = "timeout"
)

// Error represents a marketplace API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed API error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// IsRetryable checks if an error type should be retried.
// Auth and quota failures indicate a systemic problem and are never retried;
// not_found is a normal per-product outcome.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransient, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// Retryable reports whether err should be retried
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return IsRetryable(apiErr.Type)
	}

	// Context errors mean the caller gave up, not the server
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return false
}

// TypeOf extracts the error type; untyped errors count as transient
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	return ErrorTypeTransient
}

// FromStatusCode maps an HTTP status code to an error type
func FromStatusCode(statusCode int) ErrorType {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeAuth
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return ErrorTypeQuota
	case http.StatusNotFound, http.StatusGone:
		return ErrorTypeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	default:
		return ErrorTypeTransient
	}
}
