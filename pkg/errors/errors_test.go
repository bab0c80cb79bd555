package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeTransient, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeAuth, false},
		{ErrorTypeQuota, false},
		{ErrorTypeNotFound, false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.errorType); got != tt.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tt.errorType, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) {
		t.Error("nil error should not be retryable")
	}
	if !Retryable(New(ErrorTypeTransient, 503, "unavailable")) {
		t.Error("transient error should be retryable")
	}
	if Retryable(New(ErrorTypeAuth, 401, "bad key")) {
		t.Error("auth error should not be retryable")
	}
	if Retryable(fmt.Errorf("wrap: %w", context.Canceled)) {
		t.Error("cancelled context should not be retryable")
	}
	if !Retryable(fmt.Errorf("wrap: %w", New(ErrorTypeTimeout, 0, "deadline"))) {
		t.Error("wrapped timeout should be retryable")
	}
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusForbidden, ErrorTypeAuth},
		{http.StatusTooManyRequests, ErrorTypeQuota},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusGatewayTimeout, ErrorTypeTimeout},
		{http.StatusInternalServerError, ErrorTypeTransient},
		{http.StatusBadGateway, ErrorTypeTransient},
	}

	for _, tt := range tests {
		if got := FromStatusCode(tt.code); got != tt.want {
			t.Errorf("FromStatusCode(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestTypeOf(t *testing.T) {
	if got := TypeOf(New(ErrorTypeQuota, 429, "quota exhausted")); got != ErrorTypeQuota {
		t.Errorf("TypeOf = %s, want quota", got)
	}
	if got := TypeOf(context.DeadlineExceeded); got != ErrorTypeTimeout {
		t.Errorf("TypeOf(deadline) = %s, want timeout", got)
	}
	if got := TypeOf(fmt.Errorf("connection reset")); got != ErrorTypeTransient {
		t.Errorf("TypeOf(plain) = %s, want transient", got)
	}
}
