// Package domain provides core types and context helpers for remindr.
//
// Context helpers centralize request-scoped data access so every handler
// reads the authenticated principal the same way.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// principalContextKey stores the authenticated principal.
	principalContextKey contextKey = iota

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// Principal is the authenticated identity resolved from a request's session cookie.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// NewContextWithPrincipal returns a new context with the principal attached.
func NewContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal from context.
// Returns nil if the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}

// UserIDFromContext retrieves the authenticated user ID from context.
// Returns uuid.Nil if no principal is present.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.UserID
	}
	return uuid.Nil
}

// RequirePrincipal returns the principal or an EUNAUTHORIZED error.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.UserID == uuid.Nil {
		return nil, Unauthorized("auth.principal", "Authentication required")
	}
	return p, nil
}

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
