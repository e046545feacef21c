package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      &Error{Code: EINVALID, Message: "priceId is required"},
			expected: "priceId is required",
		},
		{
			name:     "with operation",
			err:      &Error{Code: EINVALID, Op: "billing.checkout", Message: "priceId is required"},
			expected: "billing.checkout: priceId is required",
		},
		{
			name: "with wrapped error",
			err: &Error{
				Code:    EINTERNAL,
				Op:      "billing.portal",
				Message: "failed to create portal session",
				Err:     errors.New("stripe: connection reset"),
			},
			expected: "billing.portal: failed to create portal session: stripe: connection reset",
		},
		{
			name: "wrapped error without op",
			err: &Error{
				Code:    EINTERNAL,
				Message: "failed to read account",
				Err:     errors.New("conn refused"),
			},
			expected: "failed to read account: conn refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &Error{Code: EINTERNAL, Message: "wrapped", Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find underlying error")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"domain error", &Error{Code: EUNAUTHORIZED, Message: "test"}, EUNAUTHORIZED},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", &Error{Code: ENOTFOUND, Message: "test"}), ENOTFOUND},
		{"non-domain error", errors.New("some error"), EINTERNAL},
		{"validation error", NewValidationError("billing.checkout", "priceId", "is required"), EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.expected {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"not found keeps message", NotFound("billing.portal", "subscription", "u1"), "subscription not found: u1"},
		{"config error keeps message", NotConfigured("billing.checkout", "Payments are not configured"), "Payments are not configured"},
		{"internal error hides message", &Error{Code: EINTERNAL, Message: "stripe said: invalid api key sk_live_x"}, genericInternalMessage},
		{"foreign error hides message", errors.New("pq: password authentication failed"), genericInternalMessage},
		{"validation error", NewValidationError("billing.checkout", "priceId", "is required"), "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.expected {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorOp(t *testing.T) {
	if got := ErrorOp(&Error{Code: EINVALID, Op: "events.list"}); got != "events.list" {
		t.Errorf("ErrorOp() = %q, want %q", got, "events.list")
	}
	if got := ErrorOp(errors.New("plain")); got != "" {
		t.Errorf("ErrorOp() = %q, want empty", got)
	}
	if got := ErrorOp(nil); got != "" {
		t.Errorf("ErrorOp(nil) = %q, want empty", got)
	}
}

func TestWrapError(t *testing.T) {
	t.Run("wraps non-nil error", func(t *testing.T) {
		underlying := errors.New("db error")
		err := WrapError(underlying, EINTERNAL, "account.get", "failed to load account")

		if ErrorCode(err) != EINTERNAL {
			t.Errorf("Code = %q, want %q", ErrorCode(err), EINTERNAL)
		}
		if !errors.Is(err, underlying) {
			t.Error("should wrap underlying error")
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		if err := WrapError(nil, EINTERNAL, "test", "test"); err != nil {
			t.Errorf("WrapError(nil) should return nil, got %v", err)
		}
	})
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("reminder.validate", "title", "title is required")
	err = AddFieldError(err, "priority", "priority must be low, medium or high")

	if !IsValidationError(err) {
		t.Fatal("expected validation error")
	}

	fields := GetValidationFields(err)
	if len(fields) != 2 {
		t.Errorf("Fields count = %d, want 2", len(fields))
	}

	if IsValidationError(errors.New("x")) {
		t.Error("plain error should not be a validation error")
	}
	if GetValidationFields(errors.New("x")) != nil {
		t.Error("plain error should have no fields")
	}
}

func TestConvenienceCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{NotFound("a", "b", "c"), ENOTFOUND},
		{Unauthorized("a", "b"), EUNAUTHORIZED},
		{Invalid("a", "b"), EINVALID},
		{NotConfigured("a", "b"), ECONFIG},
		{Internal(errors.New("x"), "a", "b"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if !IsCode(tt.err, tt.code) {
				t.Errorf("IsCode(%v, %q) = false", tt.err, tt.code)
			}
		})
	}
}
