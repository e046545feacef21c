package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/handler"
	"github.com/dukerupert/remindr/internal/middleware"
	"github.com/dukerupert/remindr/internal/service"
)

// SignatureHeader carries the provider's HMAC signature.
const SignatureHeader = "Stripe-Signature"

// StripeHandler handles Stripe webhook events
type StripeHandler struct {
	webhooks service.WebhookService
	maxBytes int64
}

// NewStripeHandler creates a new Stripe webhook handler
func NewStripeHandler(webhooks service.WebhookService) *StripeHandler {
	return &StripeHandler{
		webhooks: webhooks,
		maxBytes: middleware.WebhookMaxBodySize,
	}
}

type ackResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
	Ignored   bool `json:"ignored,omitempty"`
}

// HandleWebhook handles POST /api/stripe/webhook
//
// The raw body is verified against the Stripe-Signature header before it is
// decoded. Verified events are acknowledged with 200 unless reconciliation
// fails with an internal error, in which case a 500 asks Stripe to retry.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/api/stripe/webhook
//	stripe trigger checkout.session.completed
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "webhook.stripe", "Payload too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Missing signature"))
		return
	}

	result, err := h.webhooks.HandleWebhook(r.Context(), payload, signature)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("webhook acknowledged",
		"event_id", result.EventID,
		"event_type", result.EventType,
		"duplicate", result.Duplicate,
		"ignored", result.Ignored,
	)

	handler.JSON(w, http.StatusOK, ackResponse{
		Received:  true,
		Duplicate: result.Duplicate,
		Ignored:   result.Ignored,
	})
}
