package routes

import (
	"net/http"

	"github.com/dukerupert/remindr/internal/handler/api"
	"github.com/dukerupert/remindr/internal/handler/web"
	"github.com/dukerupert/remindr/internal/middleware"
	"github.com/dukerupert/remindr/internal/router"
)

// APIDeps contains dependencies for the session-authenticated JSON API
type APIDeps struct {
	BillingHandler *api.BillingHandler
	EventsHandler  *api.EventsHandler

	// RateLimiter bounds the billing endpoints, which each cost a provider call.
	RateLimiter *middleware.RateLimiter

	// Session resolves the principal; RequireUser runs after it.
	Session router.Middleware
}

// AuthDeps contains dependencies for the sign-in redirect routes
type AuthDeps struct {
	CallbackHandler *web.CallbackHandler
	RateLimiter     *middleware.RateLimiter
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains dependencies for health and metrics endpoints
type OpsDeps struct {
	Health  http.Handler
	Metrics http.Handler
}
