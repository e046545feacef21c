// Package cookie provides cookie helpers for session storage. All session and
// authentication cookies go through this package so domain scoping and
// security flags stay consistent.
package cookie

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxChunkSize is the longest value written to a single cookie. Longer values
// are split into name.0, name.1, ... which keeps each Set-Cookie header well
// under the 4096-byte browser limit.
const MaxChunkSize = 3180

// SessionMaxAge matches the auth provider's client default of 400 days.
const SessionMaxAge = 400 * 24 * 60 * 60

// Config holds cookie configuration.
type Config struct {
	// Domain scopes cookies. Empty means host-only cookies.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool
}

// NewConfig creates a new cookie configuration.
func NewConfig(domain string, secure bool) *Config {
	return &Config{
		Domain: domain,
		Secure: secure,
	}
}

func (c *Config) base(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Domain:   c.Domain,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSession sets a session cookie.
//
// The cookie is set with Path "/", HttpOnly, SameSite=Lax and Secure from config.
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	ck := c.base(name)
	ck.Value = value
	ck.MaxAge = maxAge
	http.SetCookie(w, ck)
}

// ClearSession removes a session cookie by setting MaxAge to -1.
// Domain and path match SetSession so the browser drops the same cookie.
func (c *Config) ClearSession(w http.ResponseWriter, name string) {
	ck := c.base(name)
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	http.SetCookie(w, ck)
}

// SetChunked writes value under name, splitting it into numbered chunks when it
// exceeds MaxChunkSize. Chunks present on r that the new value no longer uses
// are cleared, as is the unsuffixed cookie when switching to chunks.
func (c *Config) SetChunked(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	existing := chunkNames(r, name)

	if len(value) <= MaxChunkSize {
		c.SetSession(w, name, value, maxAge)
		for _, n := range existing {
			if n != name {
				c.ClearSession(w, n)
			}
		}
		return
	}

	written := make(map[string]bool)
	for i := 0; len(value) > 0; i++ {
		n := len(value)
		if n > MaxChunkSize {
			n = MaxChunkSize
		}
		chunk := chunkName(name, i)
		c.SetSession(w, chunk, value[:n], maxAge)
		written[chunk] = true
		value = value[n:]
	}

	for _, n := range existing {
		if !written[n] {
			c.ClearSession(w, n)
		}
	}
}

// ClearChunked removes name and every chunk of it present on r.
func (c *Config) ClearChunked(w http.ResponseWriter, r *http.Request, name string) {
	names := chunkNames(r, name)
	if len(names) == 0 {
		names = []string{name}
	}
	for _, n := range names {
		c.ClearSession(w, n)
	}
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetChunked returns the value stored under name, joining name.0, name.1, ...
// when the unsuffixed cookie is absent. Joining stops at the first gap.
func GetChunked(r *http.Request, name string) string {
	if v := Get(r, name); v != "" {
		return v
	}

	var b strings.Builder
	for i := 0; ; i++ {
		v := Get(r, chunkName(name, i))
		if v == "" {
			break
		}
		b.WriteString(v)
	}
	return b.String()
}

func chunkName(name string, i int) string {
	return name + "." + strconv.Itoa(i)
}

// chunkNames lists name and any name.N cookies on r, sorted.
func chunkNames(r *http.Request, name string) []string {
	if r == nil {
		return nil
	}

	prefix := name + "."
	var out []string
	for _, ck := range r.Cookies() {
		if ck.Name == name {
			out = append(out, ck.Name)
			continue
		}
		if suffix, ok := strings.CutPrefix(ck.Name, prefix); ok {
			if _, err := strconv.Atoi(suffix); err == nil {
				out = append(out, ck.Name)
			}
		}
	}
	sort.Strings(out)
	return out
}
