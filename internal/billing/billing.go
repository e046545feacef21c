package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Provider defines the hosted payment flows the application uses.
// Implementations must not perform any network call when unconfigured.
type Provider interface {
	// Configured reports whether real credentials are present.
	// Callers check it before any other method to fail fast.
	Configured() bool

	// CreateCheckoutSession creates a subscription-mode hosted checkout session.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// CreatePortalSession creates a hosted billing-management session for an existing customer.
	CreatePortalSession(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error)

	// ConstructEvent verifies a webhook signature and decodes the event.
	ConstructEvent(payload []byte, signatureHeader string) (*Event, error)
}

// CreateCheckoutSessionParams contains parameters for a subscription checkout.
type CreateCheckoutSessionParams struct {
	// PriceID is the recurring price to subscribe to (price_...).
	PriceID string

	// ClientReferenceID links the session back to the application account.
	ClientReferenceID string

	// CustomerEmail prefills the email field on the hosted page.
	CustomerEmail string

	// CustomerID reuses an existing provider customer instead of creating one.
	CustomerID string

	SuccessURL string
	CancelURL  string

	// SubscriptionMetadata is copied onto the resulting subscription so
	// subscription webhooks can be attributed without the session.
	SubscriptionMetadata map[string]string

	// IdempotencyKey deduplicates retried requests.
	IdempotencyKey string
}

// CheckoutSession is a created hosted checkout session.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreatePortalSessionParams contains parameters for a billing portal session.
type CreatePortalSessionParams struct {
	CustomerID string
	ReturnURL  string
}

// PortalSession is a created billing portal session.
type PortalSession struct {
	ID  string
	URL string
}

// Webhook event types the application reconciles.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// Event is a verified webhook event.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	// Data is the raw JSON of the event's data.object.
	Data json.RawMessage
}

// CheckoutCompleted is the part of a completed checkout session used for reconciliation.
type CheckoutCompleted struct {
	SessionID         string
	ClientReferenceID string
	CustomerID        string
	SubscriptionID    string
}

// SubscriptionChange is the part of a subscription object used for reconciliation.
type SubscriptionChange struct {
	SubscriptionID string
	CustomerID     string
	Status         string
	// UserID comes from subscription metadata, when present.
	UserID string
}

// Active reports whether the subscription status grants paid features.
func (s SubscriptionChange) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}

// expandable decodes either a bare id string or an expanded object with an id.
type expandable string

func (e *expandable) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*e = expandable(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandable(obj.ID)
	return nil
}

// CheckoutCompleted decodes a checkout.session.completed payload.
func (e *Event) CheckoutCompleted() (*CheckoutCompleted, error) {
	if e.Type != EventCheckoutSessionCompleted {
		return nil, fmt.Errorf("billing: event %s is %s, not %s", e.ID, e.Type, EventCheckoutSessionCompleted)
	}

	var obj struct {
		ID                string     `json:"id"`
		ClientReferenceID string     `json:"client_reference_id"`
		Customer          expandable `json:"customer"`
		Subscription      expandable `json:"subscription"`
	}
	if err := json.Unmarshal(e.Data, &obj); err != nil {
		return nil, fmt.Errorf("billing: decode checkout session: %w", err)
	}

	return &CheckoutCompleted{
		SessionID:         obj.ID,
		ClientReferenceID: obj.ClientReferenceID,
		CustomerID:        string(obj.Customer),
		SubscriptionID:    string(obj.Subscription),
	}, nil
}

// SubscriptionChange decodes a customer.subscription.* payload.
func (e *Event) SubscriptionChange() (*SubscriptionChange, error) {
	if e.Type != EventSubscriptionUpdated && e.Type != EventSubscriptionDeleted {
		return nil, fmt.Errorf("billing: event %s is %s, not a subscription event", e.ID, e.Type)
	}

	var obj struct {
		ID       string            `json:"id"`
		Customer expandable        `json:"customer"`
		Status   string            `json:"status"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(e.Data, &obj); err != nil {
		return nil, fmt.Errorf("billing: decode subscription: %w", err)
	}

	return &SubscriptionChange{
		SubscriptionID: obj.ID,
		CustomerID:     string(obj.Customer),
		Status:         obj.Status,
		UserID:         obj.Metadata[MetadataUserID],
	}, nil
}

// MetadataUserID is the subscription metadata key carrying the account id.
const MetadataUserID = "user_id"
