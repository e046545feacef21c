package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukerupert/remindr/internal/billing"
	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/telemetry"
)

// BillingService starts hosted payment flows for the signed-in account.
type BillingService interface {
	// CreateCheckoutSession starts a subscription checkout for the principal in ctx.
	//
	// Checks run in this order and stop at the first failure:
	//  1. Provider configured, else ErrBillingNotConfigured (no provider call)
	//  2. Principal present, else EUNAUTHORIZED (no provider call)
	//  3. Request valid and price offered, else EINVALID
	//
	// An account that already has a billing customer checks out as that
	// customer; otherwise the principal's email prefills a new one.
	// Provider failures are logged and returned as EINTERNAL with a generic message.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)

	// AuthorizeCheckout runs the first two CreateCheckoutSession checks alone.
	// Callers that fail to read a request body use it so that a missing
	// configuration or sign-in is reported ahead of the bad body.
	AuthorizeCheckout(ctx context.Context) error

	// CreatePortalSession opens the hosted billing portal for the principal in ctx.
	//
	// Returns ErrNoActiveSubscription, without calling the provider, when the
	// account has no stored billing customer.
	CreatePortalSession(ctx context.Context) (*PortalResult, error)
}

// CheckoutRequest is the body of a checkout request.
type CheckoutRequest struct {
	PriceID string `json:"priceId" validate:"required,max=255"`
	// Plan is a display label only. It is recorded in metrics.
	Plan string `json:"plan" validate:"omitempty,max=64"`
}

// CheckoutResult is a created checkout session.
type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PortalResult is a created billing portal session.
type PortalResult struct {
	URL string `json:"url"`
}

// BillingConfig holds the URLs and prices the billing flows use.
type BillingConfig struct {
	// AppURL is the public base URL without a trailing slash.
	AppURL string
	// PriceIDs are the offered prices. When empty any price id is passed through.
	PriceIDs []string
}

func (c BillingConfig) successURL() string {
	return c.AppURL + "/dashboard?checkout=success&session_id={CHECKOUT_SESSION_ID}"
}

func (c BillingConfig) cancelURL() string {
	return c.AppURL + "/pricing?checkout=canceled"
}

func (c BillingConfig) portalReturnURL() string {
	return c.AppURL + "/settings/billing"
}

// billingService implements BillingService
type billingService struct {
	provider billing.Provider
	accounts domain.AccountRepository
	config   BillingConfig
	logger   *slog.Logger
}

// NewBillingService creates a new BillingService instance
func NewBillingService(provider billing.Provider, accounts domain.AccountRepository, config BillingConfig, logger *slog.Logger) BillingService {
	if logger == nil {
		logger = slog.Default()
	}
	config.AppURL = strings.TrimRight(config.AppURL, "/")

	return &billingService{
		provider: provider,
		accounts: accounts,
		config:   config,
		logger:   logger.With("service", "billing"),
	}
}

func (s *billingService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	const op = "billing.create_checkout_session"

	principal, err := s.authorizeCheckout(ctx)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateStruct(op, &req); err != nil {
		telemetry.RecordCheckoutFailed("invalid_request")
		return nil, err
	}
	if len(s.config.PriceIDs) > 0 && !slices.Contains(s.config.PriceIDs, req.PriceID) {
		telemetry.RecordCheckoutFailed("unknown_price")
		return nil, ErrUnknownPrice
	}

	// An account holds at most one customer; a returning subscriber checks out as it.
	customerID, err := s.accounts.BillingCustomerID(ctx, principal.UserID)
	if err != nil && !domain.IsCode(err, domain.ENOTFOUND) {
		s.logger.ErrorContext(ctx, "checkout: failed to load billing customer", "user_id", principal.UserID, "error", err)
		telemetry.RecordCheckoutFailed("store_error")
		return nil, domain.Internal(err, op, "Failed to create checkout session")
	}

	userID := principal.UserID.String()
	params := billing.CreateCheckoutSessionParams{
		PriceID:              req.PriceID,
		ClientReferenceID:    userID,
		SuccessURL:           s.config.successURL(),
		CancelURL:            s.config.cancelURL(),
		SubscriptionMetadata: map[string]string{billing.MetadataUserID: userID},
	}
	if customerID != "" {
		params.CustomerID = customerID
	} else {
		params.CustomerEmail = principal.Email
	}
	if requestID := domain.RequestIDFromContext(ctx); requestID != "" {
		params.IdempotencyKey = "checkout-" + requestID
	}

	session, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "checkout: failed to create session",
			"user_id", userID,
			"price_id", req.PriceID,
			"error", err,
		)
		telemetry.RecordCheckoutFailed(failureReason(err))
		return nil, domain.Internal(err, op, "Failed to create checkout session")
	}

	plan := planLabel(req.Plan)
	telemetry.RecordCheckoutCreated(plan)
	s.logger.InfoContext(ctx, "checkout session created",
		"user_id", userID,
		"session_id", session.ID,
		"plan", plan,
	)

	return &CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

func (s *billingService) AuthorizeCheckout(ctx context.Context) error {
	_, err := s.authorizeCheckout(ctx)
	return err
}

func (s *billingService) authorizeCheckout(ctx context.Context) (*domain.Principal, error) {
	if s.provider == nil || !s.provider.Configured() {
		s.logger.ErrorContext(ctx, "checkout: payment provider not configured")
		telemetry.RecordCheckoutFailed("not_configured")
		return nil, ErrBillingNotConfigured
	}

	principal, err := domain.RequirePrincipal(ctx)
	if err != nil {
		telemetry.RecordCheckoutFailed("unauthorized")
		return nil, err
	}
	return principal, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context) (*PortalResult, error) {
	const op = "billing.create_portal_session"

	principal, err := domain.RequirePrincipal(ctx)
	if err != nil {
		telemetry.RecordPortalFailed("unauthorized")
		return nil, err
	}

	customerID, err := s.accounts.BillingCustomerID(ctx, principal.UserID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			telemetry.RecordPortalFailed("no_customer")
			return nil, ErrNoActiveSubscription
		}
		s.logger.ErrorContext(ctx, "portal: failed to load billing customer", "user_id", principal.UserID, "error", err)
		telemetry.RecordPortalFailed("store_error")
		return nil, domain.Internal(err, op, "Failed to create portal session")
	}
	if customerID == "" {
		telemetry.RecordPortalFailed("no_customer")
		return nil, ErrNoActiveSubscription
	}

	if s.provider == nil || !s.provider.Configured() {
		s.logger.ErrorContext(ctx, "portal: payment provider not configured")
		telemetry.RecordPortalFailed("not_configured")
		return nil, ErrBillingNotConfigured
	}

	session, err := s.provider.CreatePortalSession(ctx, billing.CreatePortalSessionParams{
		CustomerID: customerID,
		ReturnURL:  s.config.portalReturnURL(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "portal: failed to create session",
			"user_id", principal.UserID,
			"customer_id", customerID,
			"error", err,
		)
		telemetry.RecordPortalFailed(failureReason(err))
		return nil, domain.Internal(err, op, "Failed to create portal session")
	}

	telemetry.RecordPortalCreated()
	return &PortalResult{URL: session.URL}, nil
}

// planLabel bounds the metric label to known plan names.
func planLabel(plan string) string {
	switch p := strings.ToLower(strings.TrimSpace(plan)); p {
	case "pro", "team":
		return p
	default:
		return "unknown"
	}
}

func failureReason(err error) string {
	var se *billing.StripeError
	switch {
	case errors.Is(err, billing.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, billing.ErrMissingSessionURL):
		return "missing_url"
	case errors.As(err, &se) && se.IsMissingResource():
		return "missing_resource"
	case errors.As(err, &se) && se.IsTemporary():
		return "temporary"
	default:
		return "provider_error"
	}
}
