package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/dukerupert/remindr/internal/auth"
	"github.com/dukerupert/remindr/internal/domain"
)

type contextKey string

// PrincipalResolver resolves the signed-in principal from request cookies.
// It may write refreshed session cookies to w.
type PrincipalResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (*domain.Principal, error)
}

// WithPrincipal resolves the session and adds the principal to the request context.
// This middleware is optional - it adds the principal if present but doesn't require authentication.
func WithPrincipal(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolver.Resolve(w, r)
			if err != nil {
				if !errors.Is(err, auth.ErrNoSession) {
					GetLogger(r.Context()).Debug("session not resolved", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := withUser(domain.NewContextWithPrincipal(r.Context(), principal), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser ensures a principal is present, returning 401 JSON if not.
// The handler never runs for unauthenticated requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipal(r.Context()) == nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPrincipal retrieves the principal from the request context.
// Returns nil if no user is authenticated.
func GetPrincipal(ctx context.Context) *domain.Principal {
	return domain.PrincipalFromContext(ctx)
}

