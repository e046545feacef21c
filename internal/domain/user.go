package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// USER DOMAIN TYPES
// =============================================================================

// Plan is the subscription tier of an account.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Valid reports whether p is a known plan tier.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

// ParsePlan converts a stored plan string, rejecting unknown tiers.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", Invalid("user.plan", fmt.Sprintf("unknown plan %q", s))
	}
	return p, nil
}

// Usage holds per-account usage counters.
type Usage struct {
	RemindersCreated  int `json:"reminders_created" validate:"gte=0"`
	NotificationsSent int `json:"notifications_sent" validate:"gte=0"`
	CalendarSyncs     int `json:"calendar_syncs" validate:"gte=0"`
}

// User is an application account. Accounts are created by the auth provider at
// signup and mutated by billing reconciliation; they are never deleted here.
type User struct {
	ID               uuid.UUID           `json:"id"`
	Email            string              `json:"email" validate:"required,email"`
	Plan             Plan                `json:"plan" validate:"oneof=free pro"`
	Usage            Usage               `json:"usage"`
	Calendars        CalendarCredentials `json:"calendar_tokens"`
	StripeCustomerID string              `json:"-"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Validate checks field constraints.
func (u *User) Validate() error {
	return validateStruct("user.validate", u)
}

// HasBillingCustomer reports whether the account is linked to a payment-provider customer.
func (u *User) HasBillingCustomer() bool {
	return u.StripeCustomerID != ""
}

// =============================================================================
// CALENDAR TOKENS
// =============================================================================

// CalendarProvider identifies an external calendar source.
type CalendarProvider string

const (
	CalendarGoogle  CalendarProvider = "google"
	CalendarOutlook CalendarProvider = "outlook"
	CalendarICal    CalendarProvider = "ical"
)

// Valid reports whether p is a supported calendar provider.
func (p CalendarProvider) Valid() bool {
	switch p {
	case CalendarGoogle, CalendarOutlook, CalendarICal:
		return true
	}
	return false
}

// CalendarToken is an OAuth token bundle for one calendar provider.
type CalendarToken struct {
	AccessToken  string    `json:"access_token" validate:"required"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is no longer usable at now.
// A zero expiry means the provider issued a non-expiring token.
func (t *CalendarToken) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// CalendarCredentials holds one token slot per OAuth calendar provider.
// iCal feeds are URL based and carry no token.
type CalendarCredentials struct {
	Google  *CalendarToken `json:"google,omitempty" validate:"omitempty"`
	Outlook *CalendarToken `json:"outlook,omitempty" validate:"omitempty"`
}

// UnmarshalJSON decodes stored credentials and rejects providers without a slot,
// so a token for an unsupported provider fails loudly instead of being dropped.
func (c *CalendarCredentials) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = CalendarCredentials{}
		return nil
	}

	type plain CalendarCredentials
	var out plain

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return Invalid("user.calendar_tokens", fmt.Sprintf("unsupported calendar credentials: %v", err))
	}

	*c = CalendarCredentials(out)
	return nil
}

// Token returns the token stored for provider, or nil.
func (c *CalendarCredentials) Token(provider CalendarProvider) (*CalendarToken, error) {
	switch provider {
	case CalendarGoogle:
		return c.Google, nil
	case CalendarOutlook:
		return c.Outlook, nil
	case CalendarICal:
		return nil, Invalid("user.calendar_tokens", "ical feeds do not use tokens")
	}
	return nil, Invalid("user.calendar_tokens", fmt.Sprintf("unknown calendar provider %q", provider))
}

// Connected lists providers that have a token on file.
func (c *CalendarCredentials) Connected() []CalendarProvider {
	var out []CalendarProvider
	if c.Google != nil {
		out = append(out, CalendarGoogle)
	}
	if c.Outlook != nil {
		out = append(out, CalendarOutlook)
	}
	return out
}

// AccountRepository reads and updates the billing side of user accounts.
// Implementations bypass row-level security and must be keyed by the
// authenticated principal or a verified provider event.
type AccountRepository interface {
	// BillingCustomerID returns "" when the account has no customer yet.
	BillingCustomerID(ctx context.Context, userID uuid.UUID) (string, error)
	CreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error)
	LinkBillingCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
	SetPlan(ctx context.Context, customerID string, plan Plan) error
}
