// Package auth talks to the hosted auth provider (a GoTrue-compatible API)
// and resolves request cookies into an authenticated principal.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// base64Prefix marks cookie values encoded as base64url JSON.
const base64Prefix = "base64-"

// ErrMalformedSession is returned when a session cookie cannot be decoded.
var ErrMalformedSession = errors.New("auth: malformed session cookie")

// User is the subset of the provider's user object this service reads.
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Role             string    `json:"role,omitempty"`
	Aud              string    `json:"aud,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	LastSignInAt     time.Time `json:"last_sign_in_at,omitempty"`
	EmailConfirmedAt time.Time `json:"email_confirmed_at,omitempty"`
}

// Session is the token bundle returned by the provider and stored in the session cookie.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	// ExpiresAt is a unix timestamp in seconds.
	ExpiresAt int64 `json:"expires_at,omitempty"`
	User      *User `json:"user,omitempty"`
}

// expiryMargin treats tokens this close to expiry as already expired so a
// refresh happens before the upstream rejects them mid-request.
const expiryMargin = 10 * time.Second

// Expired reports whether the access token should be refreshed at now.
// A session without expires_at is never considered expired locally.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return !now.Add(expiryMargin).Before(time.Unix(s.ExpiresAt, 0))
}

// normalize fills ExpiresAt from ExpiresIn when the provider omitted it.
func (s *Session) normalize(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}

// EncodeSession serializes s for the session cookie as "base64-" + base64url(JSON).
func EncodeSession(s *Session) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	return base64Prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeSession parses a session cookie value. Both the base64 form and the
// older plain JSON form are accepted.
func DecodeSession(value string) (*Session, error) {
	raw, err := decodeCookieValue(value)
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", ErrMalformedSession)
	}
	return &s, nil
}

// DecodeCodeVerifier extracts the PKCE verifier from its cookie. The browser
// client stores it JSON encoded, optionally suffixed with "/<redirect type>".
func DecodeCodeVerifier(value string) (string, error) {
	raw, err := decodeCookieValue(value)
	if err != nil {
		return "", err
	}

	verifier := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		verifier = s
	}

	verifier, _, _ = strings.Cut(verifier, "/")
	if verifier == "" {
		return "", fmt.Errorf("%w: empty code verifier", ErrMalformedSession)
	}
	return verifier, nil
}

func decodeCookieValue(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedSession)
	}

	encoded, ok := strings.CutPrefix(value, base64Prefix)
	if !ok {
		return []byte(value), nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	return raw, nil
}
