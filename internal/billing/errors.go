package billing

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"
)

var (
	// ErrNotConfigured is returned when no real API key is configured.
	// No request is sent to the provider when it is returned.
	ErrNotConfigured = errors.New("billing: provider not configured")

	// ErrWebhookNotConfigured is returned when no webhook signing secret is configured.
	ErrWebhookNotConfigured = errors.New("billing: webhook secret not configured")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrMissingSessionURL is returned when the provider returns a session without a redirect URL.
	ErrMissingSessionURL = errors.New("billing: session has no url")
)

// StripeError wraps a Stripe API error with additional context.
type StripeError struct {
	Message        string // Human-readable error message
	Code           string // Stripe error code (e.g., "resource_missing")
	Type           string // Stripe error type (e.g., "invalid_request_error")
	HTTPStatusCode int
	RequestID      string // Stripe request ID for debugging
	OriginalError  error  // Original error from Stripe SDK
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.OriginalError
}

// IsTemporary returns true if error is likely transient and retryable.
func (e *StripeError) IsTemporary() bool {
	return e.Code == string(stripe.ErrorCodeRateLimit) ||
		e.Type == string(stripe.ErrorTypeAPI) ||
		e.HTTPStatusCode >= 500
}

// IsMissingResource returns true if the referenced customer or price does not exist.
func (e *StripeError) IsMissingResource() bool {
	return e.Code == string(stripe.ErrorCodeResourceMissing)
}

// wrapStripeError converts a stripe-go error into a StripeError.
// Non-API errors (network, encoding) are wrapped with only a message.
func wrapStripeError(err error) error {
	if err == nil {
		return nil
	}

	var se *stripe.Error
	if errors.As(err, &se) {
		return &StripeError{
			Message:        se.Msg,
			Code:           string(se.Code),
			Type:           string(se.Type),
			HTTPStatusCode: se.HTTPStatusCode,
			RequestID:      se.RequestID,
			OriginalError:  err,
		}
	}

	return &StripeError{Message: err.Error(), OriginalError: err}
}
