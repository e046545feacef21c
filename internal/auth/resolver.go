package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/remindr/internal/cookie"
	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/telemetry"
)

// SessionCookies reads and writes the provider's session cookies:
// sb-<ref>-auth-token (possibly chunked) and sb-<ref>-auth-token-code-verifier.
type SessionCookies struct {
	cfg  *cookie.Config
	name string
}

// NewSessionCookies binds cookie names to a provider project reference.
func NewSessionCookies(cfg *cookie.Config, projectRef string) *SessionCookies {
	return &SessionCookies{cfg: cfg, name: "sb-" + projectRef + "-auth-token"}
}

// Name is the session cookie name.
func (s *SessionCookies) Name() string { return s.name }

// VerifierName is the PKCE code verifier cookie name.
func (s *SessionCookies) VerifierName() string { return s.name + "-code-verifier" }

// Load decodes the session from r. Returns ErrNoSession when no cookie is present.
func (s *SessionCookies) Load(r *http.Request) (*Session, error) {
	raw := cookie.GetChunked(r, s.name)
	if raw == "" {
		return nil, ErrNoSession
	}
	return DecodeSession(raw)
}

// Save writes sess as (possibly chunked) cookies, replacing whatever r carried.
func (s *SessionCookies) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	value, err := EncodeSession(sess)
	if err != nil {
		return err
	}
	s.cfg.SetChunked(w, r, s.name, value, cookie.SessionMaxAge)
	return nil
}

// Clear removes the session cookie and all of its chunks.
func (s *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) {
	s.cfg.ClearChunked(w, r, s.name)
}

// CodeVerifier returns the PKCE verifier stored by the browser client before redirecting.
func (s *SessionCookies) CodeVerifier(r *http.Request) (string, error) {
	raw := cookie.GetChunked(r, s.VerifierName())
	if raw == "" {
		return "", ErrNoSession
	}
	return DecodeCodeVerifier(raw)
}

// ClearCodeVerifier removes the verifier. It is single use.
func (s *SessionCookies) ClearCodeVerifier(w http.ResponseWriter, r *http.Request) {
	s.cfg.ClearChunked(w, r, s.VerifierName())
}

// ErrNoSession is returned when the request carries no session cookie.
var ErrNoSession = errors.New("auth: no session cookie")

// SessionProvider is the part of the auth provider the resolver needs.
type SessionProvider interface {
	GetUser(ctx context.Context, accessToken string) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
}

// Resolver turns request cookies into a principal.
//
// When a verifier is configured, access tokens are checked locally; otherwise
// every call costs one GetUser round-trip. Expired sessions are refreshed once
// and the new session is written back on w. There is no caching and no retry.
type Resolver struct {
	provider SessionProvider
	verifier *TokenVerifier
	cookies  *SessionCookies
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver creates a session resolver. verifier may be nil.
func NewResolver(provider SessionProvider, verifier *TokenVerifier, cookies *SessionCookies, logger *slog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		verifier: verifier,
		cookies:  cookies,
		logger:   logger.With("component", "session_resolver"),
		now:      time.Now,
	}
}

// Resolve returns the authenticated principal for r. Every failure is EUNAUTHORIZED.
func (res *Resolver) Resolve(w http.ResponseWriter, r *http.Request) (*domain.Principal, error) {
	const op = "auth.resolve"
	ctx := r.Context()

	sess, err := res.cookies.Load(r)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			telemetry.RecordSessionRejected("malformed")
			res.logger.DebugContext(ctx, "discarding malformed session cookie", "error", err)
		}
		return nil, domain.WrapError(err, domain.EUNAUTHORIZED, op, "Authentication required")
	}

	if sess.Expired(res.now()) {
		sess, err = res.refresh(w, r, sess)
		if err != nil {
			telemetry.RecordSessionRejected("expired")
			return nil, domain.WrapError(err, domain.EUNAUTHORIZED, op, "Session expired")
		}
	}

	p, err := res.principal(ctx, sess)
	if err != nil {
		reason := "invalid_token"
		if !errors.Is(err, ErrInvalidToken) {
			reason = "upstream"
		}
		telemetry.RecordSessionRejected(reason)
		return nil, domain.WrapError(err, domain.EUNAUTHORIZED, op, "Authentication required")
	}

	return p, nil
}

func (res *Resolver) refresh(w http.ResponseWriter, r *http.Request, sess *Session) (*Session, error) {
	if sess.RefreshToken == "" {
		return nil, fmt.Errorf("%w: expired session without refresh token", ErrInvalidToken)
	}

	fresh, err := res.provider.RefreshSession(r.Context(), sess.RefreshToken)
	telemetry.RecordSessionRefresh(err == nil)
	if err != nil {
		// A rejected refresh token will never work again; drop the cookie.
		if errors.Is(err, ErrInvalidGrant) || errors.Is(err, ErrInvalidToken) {
			res.cookies.Clear(w, r)
		}
		return nil, err
	}

	if err := res.cookies.Save(w, r, fresh); err != nil {
		return nil, err
	}
	res.logger.DebugContext(r.Context(), "session refreshed")
	return fresh, nil
}

func (res *Resolver) principal(ctx context.Context, sess *Session) (*domain.Principal, error) {
	if res.verifier != nil {
		id, claims, err := res.verifier.Verify(sess.AccessToken)
		if err != nil {
			return nil, err
		}
		return &domain.Principal{UserID: id, Email: claims.Email}, nil
	}

	u, err := res.provider.GetUser(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: user without id", ErrInvalidToken)
	}
	return &domain.Principal{UserID: u.ID, Email: u.Email}, nil
}
