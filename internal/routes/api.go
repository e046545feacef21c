package routes

import (
	"github.com/dukerupert/remindr/internal/middleware"
	"github.com/dukerupert/remindr/internal/router"
)

// RegisterAPIRoutes registers the session-authenticated JSON API.
//
// Every route resolves the session. Checkout does not use RequireUser: it
// reports missing payment configuration before it checks the principal.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	api := r.Group(deps.Session)

	limited := api
	if deps.RateLimiter != nil {
		limited = api.Group(deps.RateLimiter.Middleware)
	}

	limited.Post("/api/stripe/create-checkout-session", deps.BillingHandler.CreateCheckoutSession)
	limited.Post("/api/stripe/create-portal-session", deps.BillingHandler.CreatePortalSession, middleware.RequireUser)

	api.Get("/api/events", deps.EventsHandler.List, middleware.RequireUser)
}

// RegisterAuthRoutes registers the hosted sign-in redirect target.
func RegisterAuthRoutes(r *router.Router, deps AuthDeps) {
	var mw []router.Middleware
	if deps.RateLimiter != nil {
		mw = append(mw, deps.RateLimiter.Middleware)
	}
	r.Get("/auth/callback", deps.CallbackHandler.Callback, mw...)
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Handle("GET", "/health", deps.Health)
	if deps.Metrics != nil {
		r.Handle("GET", "/metrics", deps.Metrics)
	}
}
