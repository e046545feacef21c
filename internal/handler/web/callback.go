package web

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/remindr/internal/auth"
	"github.com/dukerupert/remindr/internal/middleware"
	"github.com/dukerupert/remindr/internal/service"
)

// CallbackHandler finishes the hosted sign-in redirect.
type CallbackHandler struct {
	auth    service.AuthService
	cookies *auth.SessionCookies
	appURL  string
}

// NewCallbackHandler creates a new callback handler. appURL is the public
// base URL every redirect is resolved against.
func NewCallbackHandler(authService service.AuthService, cookies *auth.SessionCookies, appURL string) *CallbackHandler {
	return &CallbackHandler{
		auth:    authService,
		cookies: cookies,
		appURL:  appURL,
	}
}

// Callback handles GET /auth/callback?code=&next=
//
// Every outcome is a 302. On a successful exchange the session cookies are
// written before redirecting. The PKCE verifier cookie is single use and is
// cleared whenever a code was presented.
func (h *CallbackHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)
	q := r.URL.Query()

	params := service.CallbackParams{
		Code: q.Get("code"),
		Next: q.Get("next"),
	}

	if params.Code != "" {
		verifier, err := h.cookies.CodeVerifier(r)
		if err != nil {
			// The exchange is still attempted: the provider rejects it and
			// the user lands on the sign-in error page.
			logger.Debug("auth callback: no usable code verifier", "error", err)
		}
		params.CodeVerifier = verifier
		h.cookies.ClearCodeVerifier(w, r)
	}

	result := h.auth.FinishCallback(ctx, params)

	if result.Session != nil {
		if err := h.cookies.Save(w, r, result.Session); err != nil {
			logger.Error("auth callback: failed to write session cookie", slog.Any("error", err))
			result.Target = service.PathSignInCallbackFail
		}
	}

	http.Redirect(w, r, h.appURL+result.Target, http.StatusFound)
}
