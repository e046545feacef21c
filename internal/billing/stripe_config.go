package billing

import (
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v83"
)

// PlaceholderAPIKey is the fallback key used when none is configured.
// A provider holding it never calls Stripe.
const PlaceholderAPIKey = "sk_test_placeholder"

// StripeConfig contains configuration for Stripe provider.
type StripeConfig struct {
	// APIKey is the Stripe secret key (sk_test_..., sk_live_... or a restricted rk_ key)
	APIKey string

	// WebhookSecret is the webhook signing secret (whsec_...)
	WebhookSecret string

	// Backend overrides the API backend. Tests point it at a local server.
	Backend stripe.Backend
}

// Configured reports whether a real API key is present.
func (c *StripeConfig) Configured() bool {
	return c.APIKey != "" && c.APIKey != PlaceholderAPIKey
}

// Validate checks that required configuration is present.
func (c *StripeConfig) Validate() error {
	if !c.Configured() {
		return errors.New("stripe: API key is required")
	}
	if c.WebhookSecret == "" {
		return errors.New("stripe: webhook secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.APIKey, "sk_test_") || strings.HasPrefix(c.APIKey, "rk_test_")
}
