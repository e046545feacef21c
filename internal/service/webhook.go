package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukerupert/remindr/internal/billing"
	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/telemetry"
)

// WebhookService reconciles account plans from payment provider events.
type WebhookService interface {
	// HandleWebhook verifies and applies one delivery.
	//
	// Returns EINVALID for a bad signature and ECONFIG when no signing secret
	// is set. Events that reference unknown accounts are acknowledged. Only
	// internal failures return an error after verification, so the provider
	// redelivers them.
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error)
}

// EventLedger records processed event ids.
type EventLedger interface {
	// MarkProcessed returns true the first time eventID is seen.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// WebhookResult describes what happened to a verified event.
type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
	// Ignored is set for event types that are not reconciled.
	Ignored bool
}

// webhookService implements WebhookService
type webhookService struct {
	provider billing.Provider
	accounts domain.AccountRepository
	ledger   EventLedger
	logger   *slog.Logger
}

// NewWebhookService creates a new WebhookService instance. A nil ledger
// disables duplicate detection.
func NewWebhookService(provider billing.Provider, accounts domain.AccountRepository, ledger EventLedger, logger *slog.Logger) WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &webhookService{
		provider: provider,
		accounts: accounts,
		ledger:   ledger,
		logger:   logger.With("service", "webhook"),
	}
}

func (s *webhookService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	const op = "webhook.handle"

	event, err := s.provider.ConstructEvent(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, billing.ErrWebhookNotConfigured) {
			s.logger.ErrorContext(ctx, "webhook: signing secret not configured")
			return nil, ErrWebhookNotConfigured
		}
		s.logger.WarnContext(ctx, "webhook: signature verification failed", "error", err)
		telemetry.RecordWebhookFailed("unknown", "invalid_signature")
		return nil, ErrInvalidWebhookSignature
	}

	result := &WebhookResult{EventID: event.ID, EventType: event.Type}
	log := s.logger.With("event_id", event.ID, "event_type", event.Type)
	telemetry.RecordWebhook("received", event.Type)

	if !reconciled(event.Type) {
		log.DebugContext(ctx, "webhook: ignoring event type")
		result.Ignored = true
		return result, nil
	}

	claimed := false
	if s.ledger != nil {
		first, err := s.ledger.MarkProcessed(ctx, event.ID)
		switch {
		case err != nil:
			log.WarnContext(ctx, "webhook: idempotency ledger unavailable, processing anyway", "error", err)
		case !first:
			log.InfoContext(ctx, "webhook: duplicate delivery acknowledged")
			telemetry.RecordWebhook("duplicate", event.Type)
			result.Duplicate = true
			return result, nil
		default:
			claimed = true
		}
	}

	if err := s.apply(ctx, event); err != nil {
		if !domain.IsCode(err, domain.EINTERNAL) {
			// Redelivery cannot fix a reference to an unknown account.
			log.WarnContext(ctx, "webhook: event not applied", "error", err)
			telemetry.RecordWebhookFailed(event.Type, domain.ErrorCode(err))
			return result, nil
		}

		log.ErrorContext(ctx, "webhook: failed to apply event", "error", err)
		telemetry.RecordWebhookFailed(event.Type, domain.EINTERNAL)
		if claimed {
			if rerr := s.ledger.Release(ctx, event.ID); rerr != nil {
				log.WarnContext(ctx, "webhook: failed to release idempotency key", "error", rerr)
			}
		}
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "Failed to process webhook")
	}

	telemetry.RecordWebhook("processed", event.Type)
	log.InfoContext(ctx, "webhook: event applied")
	return result, nil
}

func reconciled(eventType string) bool {
	switch eventType {
	case billing.EventCheckoutSessionCompleted, billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

func (s *webhookService) apply(ctx context.Context, event *billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutSessionCompleted:
		completed, err := event.CheckoutCompleted()
		if err != nil {
			return domain.WrapError(err, domain.EINVALID, "webhook.checkout_completed", "Malformed checkout session")
		}
		return s.applyCheckoutCompleted(ctx, completed)

	case billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		change, err := event.SubscriptionChange()
		if err != nil {
			return domain.WrapError(err, domain.EINVALID, "webhook.subscription_change", "Malformed subscription")
		}
		plan := domain.PlanFree
		if event.Type == billing.EventSubscriptionUpdated && change.Active() {
			plan = domain.PlanPro
		}
		return s.applySubscriptionChange(ctx, change, plan)
	}
	return nil
}

func (s *webhookService) applyCheckoutCompleted(ctx context.Context, c *billing.CheckoutCompleted) error {
	const op = "webhook.checkout_completed"

	userID, err := uuid.Parse(c.ClientReferenceID)
	if err != nil {
		return domain.Errorf(domain.EINVALID, op, "checkout session %s has no account reference", c.SessionID)
	}
	if c.CustomerID == "" {
		return domain.Errorf(domain.EINVALID, op, "checkout session %s has no customer", c.SessionID)
	}

	if err := s.accounts.LinkBillingCustomer(ctx, userID, c.CustomerID); err != nil {
		return err
	}
	return s.accounts.SetPlan(ctx, c.CustomerID, domain.PlanPro)
}

func (s *webhookService) applySubscriptionChange(ctx context.Context, c *billing.SubscriptionChange, plan domain.Plan) error {
	err := s.accounts.SetPlan(ctx, c.CustomerID, plan)
	if err == nil || !domain.IsCode(err, domain.ENOTFOUND) {
		return err
	}

	// The subscription can arrive before checkout.session.completed. Its
	// metadata carries the account id set at checkout.
	userID, perr := uuid.Parse(c.UserID)
	if perr != nil {
		return err
	}
	if err := s.accounts.LinkBillingCustomer(ctx, userID, c.CustomerID); err != nil {
		return err
	}
	return s.accounts.SetPlan(ctx, c.CustomerID, plan)
}
