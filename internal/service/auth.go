package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/remindr/internal/auth"
	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/telemetry"
)

// Redirect targets of the auth callback.
const (
	PathDashboard          = "/dashboard"
	PathWelcome            = "/welcome"
	PathSignInCallbackFail = "/sign-in?error=auth_callback_failed"
)

// NewAccountWindow is how recently an account must have been created for a
// sign-in to count as its first. The check compares timestamps, so a
// returning user who signs in again inside the window still lands on the
// welcome page. The auth provider does not return an explicit signup flag.
const NewAccountWindow = 5 * time.Minute

// AuthService finishes the hosted sign-in redirect.
type AuthService interface {
	// FinishCallback exchanges the one-time code and picks the redirect target.
	//
	// Flow:
	//  1. No code: redirect to next (default /dashboard)
	//  2. Exchange fails: redirect to /sign-in?error=auth_callback_failed, no retry, no DB read
	//  3. Exchange succeeds: read the account creation time once and redirect
	//     to /welcome inside NewAccountWindow, else to next
	//
	// It never fails; every outcome is a redirect.
	FinishCallback(ctx context.Context, params CallbackParams) *CallbackResult
}

// CodeExchanger trades a PKCE auth code for a session.
type CodeExchanger interface {
	ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*auth.Session, error)
}

// CallbackParams are the inputs of an auth callback.
type CallbackParams struct {
	Code         string
	CodeVerifier string
	Next         string
}

// CallbackResult is where to send the browser, plus the session to persist.
type CallbackResult struct {
	// Target is an app-relative path.
	Target string
	// Session is set only when the exchange succeeded.
	Session *auth.Session
	// Outcome is one of the telemetry.Callback* values.
	Outcome string
}

// authService implements AuthService
type authService struct {
	exchanger CodeExchanger
	accounts  domain.AccountRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService instance
func NewAuthService(exchanger CodeExchanger, accounts domain.AccountRepository, logger *slog.Logger) AuthService {
	return newAuthService(exchanger, accounts, logger, time.Now)
}

func newAuthService(exchanger CodeExchanger, accounts domain.AccountRepository, logger *slog.Logger, now func() time.Time) *authService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		exchanger: exchanger,
		accounts:  accounts,
		logger:    logger.With("service", "auth"),
		now:       now,
	}
}

func (s *authService) FinishCallback(ctx context.Context, params CallbackParams) *CallbackResult {
	next := SafeNext(params.Next)

	if params.Code == "" {
		telemetry.RecordAuthCallback(telemetry.CallbackNoCode)
		return &CallbackResult{Target: next, Outcome: telemetry.CallbackNoCode}
	}

	session, err := s.exchanger.ExchangeCodeForSession(ctx, params.Code, params.CodeVerifier)
	if err != nil || session == nil {
		s.logger.WarnContext(ctx, "auth callback: code exchange failed", "error", err)
		telemetry.RecordAuthCallback(telemetry.CallbackFailed)
		return &CallbackResult{Target: PathSignInCallbackFail, Outcome: telemetry.CallbackFailed}
	}

	result := &CallbackResult{Target: next, Session: session, Outcome: telemetry.CallbackReturning}
	if session.User == nil {
		s.logger.WarnContext(ctx, "auth callback: session has no user, treating as returning")
		telemetry.RecordAuthCallback(result.Outcome)
		return result
	}

	createdAt, err := s.accounts.CreatedAt(ctx, session.User.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "auth callback: failed to read account age, treating as returning",
			"user_id", session.User.ID,
			"error", err,
		)
	} else if IsNewAccount(createdAt, s.now()) {
		result.Target = PathWelcome
		result.Outcome = telemetry.CallbackNewUser
	}

	telemetry.RecordAuthCallback(result.Outcome)
	s.logger.InfoContext(ctx, "auth callback completed",
		"user_id", session.User.ID,
		"outcome", result.Outcome,
	)
	return result
}

// IsNewAccount reports whether an account created at createdAt is inside
// NewAccountWindow at now. Creation times ahead of now count as new.
func IsNewAccount(createdAt, now time.Time) bool {
	return now.Sub(createdAt) < NewAccountWindow
}

// SafeNext returns next when it is an app-relative path, else PathDashboard.
func SafeNext(next string) string {
	if next == "" || next[0] != '/' {
		return PathDashboard
	}
	if len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return PathDashboard
	}
	if strings.ContainsAny(next, "\r\n") {
		return PathDashboard
	}
	return next
}
