package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v83"
	portalsession "github.com/stripe/stripe-go/v83/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/dukerupert/remindr/internal/telemetry"
)

// StripeProvider implements Provider using Stripe.
//
// The API key is bound to per-resource clients at construction. Nothing is
// written to the stripe package globals, so an unconfigured provider stays
// unconfigured instead of silently using a placeholder key.
type StripeProvider struct {
	config   StripeConfig
	checkout checkoutsession.Client
	portal   portalsession.Client
	logger   *slog.Logger
}

// NewStripeProvider creates a Stripe billing provider. It never fails: an
// unconfigured provider reports Configured() == false and returns
// ErrNotConfigured from every API method.
func NewStripeProvider(config StripeConfig, logger *slog.Logger) *StripeProvider {
	backend := config.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}

	return &StripeProvider{
		config:   config,
		checkout: checkoutsession.Client{B: backend, Key: config.APIKey},
		portal:   portalsession.Client{B: backend, Key: config.APIKey},
		logger:   logger.With("provider", "stripe"),
	}
}

// Configured reports whether a real API key is present.
func (s *StripeProvider) Configured() bool {
	return s != nil && s.config.Configured()
}

// CreateCheckoutSession creates a subscription-mode hosted checkout session.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	sp := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
		ClientReferenceID: stripe.String(params.ClientReferenceID),
	}

	// Stripe rejects customer and customer_email together.
	if params.CustomerID != "" {
		sp.Customer = stripe.String(params.CustomerID)
	} else if params.CustomerEmail != "" {
		sp.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	if len(params.SubscriptionMetadata) > 0 {
		sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: params.SubscriptionMetadata,
		}
	}

	if params.IdempotencyKey != "" {
		sp.SetIdempotencyKey(params.IdempotencyKey)
	}

	spanCtx, finish := telemetry.StartSpan(ctx, "stripe.checkout.session.create", "create checkout session")
	sp.Context = spanCtx
	start := time.Now()

	session, err := s.checkout.New(sp)

	telemetry.ObserveStripe("create_checkout_session", start)
	finish()

	if err != nil {
		return nil, wrapStripeError(err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("%w: checkout session %s", ErrMissingSessionURL, session.ID)
	}

	s.logger.DebugContext(ctx, "checkout session created", "session_id", session.ID)
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CreatePortalSession creates a billing portal session for an existing customer.
func (s *StripeProvider) CreatePortalSession(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	sp := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(params.CustomerID),
		ReturnURL: stripe.String(params.ReturnURL),
	}

	spanCtx, finish := telemetry.StartSpan(ctx, "stripe.billing_portal.session.create", "create portal session")
	sp.Context = spanCtx
	start := time.Now()

	session, err := s.portal.New(sp)

	telemetry.ObserveStripe("create_portal_session", start)
	finish()

	if err != nil {
		return nil, wrapStripeError(err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("%w: portal session %s", ErrMissingSessionURL, session.ID)
	}

	return &PortalSession{ID: session.ID, URL: session.URL}, nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// API version mismatches are tolerated; only the fields read by the
// reconciliation code need to be stable.
func (s *StripeProvider) ConstructEvent(payload []byte, signatureHeader string) (*Event, error) {
	if s.config.WebhookSecret == "" {
		return nil, ErrWebhookNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Join(ErrInvalidWebhookSignature, err)
	}

	out := &Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0),
	}
	if event.Data != nil {
		out.Data = event.Data.Raw
	}
	return out, nil
}
