package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// CSRFConfig configures cross-site request protection for cookie-authenticated routes.
type CSRFConfig struct {
	// TrustedOrigins are scheme://host[:port] values allowed to send unsafe requests.
	// The application origin (APP_URL) belongs here.
	TrustedOrigins []string

	// SkipPaths are paths that should skip validation.
	// Useful for webhooks that have their own authentication.
	SkipPaths []string

	// ErrorHandler is called when validation fails
	// Default: returns 403 Forbidden
	ErrorHandler func(w http.ResponseWriter, r *http.Request)
}

// DefaultCSRFConfig trusts appURL and skips the billing webhook.
func DefaultCSRFConfig(appURL string) CSRFConfig {
	return CSRFConfig{
		TrustedOrigins: []string{appURL},
		SkipPaths:      []string{"/api/stripe/webhook"},
	}
}

// CSRF rejects state-changing requests that a browser marks as coming from
// another origin. The session cookie is SameSite=Lax, which still lets a
// top-level cross-site POST through, so unsafe methods must prove their origin
// with Sec-Fetch-Site, Origin or Referer. Requests carrying none of the three
// are not from a browser and pass.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	trusted := make(map[string]bool, len(cfg.TrustedOrigins))
	for _, o := range cfg.TrustedOrigins {
		if origin := normalizeOrigin(o); origin != "" {
			trusted[origin] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			// SECURITY: Use proper path boundary matching to prevent bypass
			// e.g., /api/stripe/webhook should not match /api/stripe/webhook-evil
			for _, skipPath := range cfg.SkipPaths {
				if matchesPathPrefix(r.URL.Path, skipPath) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if !sameOrigin(r, trusted) {
				GetLogger(r.Context()).Info("csrf: cross-origin request rejected",
					"origin", r.Header.Get("Origin"),
					"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
				)
				if cfg.ErrorHandler != nil {
					cfg.ErrorHandler(w, r)
				} else {
					respondForbidden(w, r)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func sameOrigin(r *http.Request, trusted map[string]bool) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		return trusted[normalizeOrigin(origin)]
	}

	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin", "none":
		return true
	case "cross-site", "same-site":
		return false
	}

	if referer := r.Header.Get("Referer"); referer != "" {
		return trusted[normalizeOrigin(referer)]
	}

	return true
}

// normalizeOrigin reduces a URL to lower-case scheme://host. It returns ""
// for opaque origins such as "null".
func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// isSafeMethod returns true for HTTP methods that don't change state
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions ||
		method == http.MethodTrace
}

// matchesPathPrefix checks if requestPath matches the skipPath with proper boundary checking.
// This prevents bypass attacks where /webhooks/ would incorrectly match /webhooks-evil/.
// The skipPath must be an exact prefix with a path boundary (/ or end of string).
func matchesPathPrefix(requestPath, skipPath string) bool {
	if !strings.HasPrefix(requestPath, skipPath) {
		return false
	}

	// If skipPath ends with /, it already has a proper boundary
	if strings.HasSuffix(skipPath, "/") {
		return true
	}

	if len(requestPath) == len(skipPath) {
		return true
	}

	return requestPath[len(skipPath)] == '/'
}
