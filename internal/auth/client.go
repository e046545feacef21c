package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/remindr/internal/telemetry"
)

const defaultHTTPTimeout = 10 * time.Second

var (
	// ErrNotConfigured is returned when the provider URL or key is missing.
	ErrNotConfigured = errors.New("auth: provider not configured")

	// ErrInvalidToken is returned when the provider rejects an access token.
	ErrInvalidToken = errors.New("auth: invalid access token")

	// ErrInvalidGrant is returned when a code or refresh token is rejected.
	ErrInvalidGrant = errors.New("auth: invalid grant")
)

// APIError is a non-2xx response from the auth provider.
type APIError struct {
	Status    int
	ErrorCode string
	Message   string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("auth provider: %d %s: %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("auth provider: %d: %s", e.Status, e.Message)
}

// Unwrap maps client-side failures onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrInvalidToken
	case e.Status == http.StatusBadRequest, e.Status == http.StatusNotFound:
		return ErrInvalidGrant
	}
	return nil
}

// ClientConfig configures a Client.
type ClientConfig struct {
	URL     string
	AnonKey string

	// HTTPClient overrides the default client. Its transport is used as is.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the auth provider's REST API.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewClient creates an auth provider client. Outbound calls are traced
// through telemetry.HTTPTransport unless cfg.HTTPClient is set.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: &telemetry.HTTPTransport{},
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		http:    hc,
		logger:  logger.With("component", "auth_client"),
		now:     time.Now,
	}
}

// Configured reports whether the client has an endpoint and key.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.anonKey != ""
}

// GetUser returns the user that owns accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	defer telemetry.ObserveSupabase("get_user", time.Now())

	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RefreshSession trades a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	defer telemetry.ObserveSupabase("refresh_token", time.Now())

	body := map[string]string{"refresh_token": refreshToken}
	return c.token(ctx, "refresh_token", body)
}

// ExchangeCodeForSession completes the PKCE flow for a one-time auth code.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*Session, error) {
	defer telemetry.ObserveSupabase("exchange_code", time.Now())

	body := map[string]string{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	}
	return c.token(ctx, "pkce", body)
}

func (c *Client) token(ctx context.Context, grantType string, body any) (*Session, error) {
	var s Session
	path := "/auth/v1/token?grant_type=" + url.QueryEscape(grantType)
	if err := c.do(ctx, http.MethodPost, path, body, "", &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response without access token", ErrInvalidGrant)
	}
	s.normalize(c.now())
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, bearer string, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp)
		c.logger.DebugContext(ctx, "auth provider rejected request",
			"path", req.URL.Path,
			"status", apiErr.Status,
			"error_code", apiErr.ErrorCode,
		)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode auth provider response: %w", err)
	}
	return nil
}

// parseAPIError reads both error shapes the provider emits:
// {"code":400,"error_code":"...","msg":"..."} and {"error":"...","error_description":"..."}.
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	apiErr.ErrorCode = firstNonEmpty(body.ErrorCode, body.Error)
	apiErr.Message = firstNonEmpty(body.Msg, body.ErrorDescription, body.Message, http.StatusText(resp.StatusCode))
	return apiErr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
