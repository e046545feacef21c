package api

import (
	"net/http"

	"github.com/dukerupert/remindr/internal/handler"
	"github.com/dukerupert/remindr/internal/service"
)

// BillingHandler starts hosted checkout and billing portal sessions.
type BillingHandler struct {
	billing service.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// CreateCheckoutSession handles POST /api/stripe/create-checkout-session
//
// Body: {"priceId": "price_...", "plan": "pro"}
// Response: 200 {"sessionId": "cs_...", "url": "https://checkout.stripe.com/..."}
//
// The route is not wrapped in RequireUser: the service reports a missing
// payment configuration before it checks the principal. Both outrank a
// body that cannot be read.
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	bodyErr := handler.RequireJSONContentType(r)
	if bodyErr == nil {
		bodyErr = handler.DecodeJSON(r, &req)
	}
	if bodyErr != nil {
		if err := h.billing.AuthorizeCheckout(r.Context()); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		handler.ValidationErrorResponse(w, r, bodyErr)
		return
	}

	result, err := h.billing.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, result)
}

// CreatePortalSession handles POST /api/stripe/create-portal-session
//
// Response: 200 {"url": "https://billing.stripe.com/..."}
// 404 when the account has never completed a checkout.
func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.billing.CreatePortalSession(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, result)
}
