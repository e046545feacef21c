package routes

import (
	"github.com/dukerupert/remindr/internal/router"
)

// RegisterWebhookRoutes registers provider callbacks. They sit outside the
// session group and the handler authenticates each delivery by signature.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/api/stripe/webhook", deps.StripeHandler)
}
