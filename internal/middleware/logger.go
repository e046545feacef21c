package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/remindr/internal/domain"
)

const loggerContextKey contextKey = "logger"

// WithRequestLogger stores a logger tagged with the request id, method, path
// and client address. Place it after RequestID. WithPrincipal adds user_id
// to it once the session is resolved.
func WithRequestLogger(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("client_ip", GetClientIP(r)),
			}
			if requestID := GetRequestID(r.Context()); requestID != "" {
				attrs = append(attrs, slog.String("request_id", requestID))
			}

			ctx := withLogger(r.Context(), baseLogger.With(attrs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withUser tags the request logger with the principal.
func withUser(ctx context.Context, p *domain.Principal) context.Context {
	if p == nil {
		return ctx
	}
	return withLogger(ctx, GetLogger(ctx).With(slog.String("user_id", p.UserID.String())))
}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// GetLogger returns the request-scoped logger, then fallback, then slog.Default().
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return slog.Default()
}
