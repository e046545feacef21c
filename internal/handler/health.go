package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	// Required dependencies fail the check when down.
	required map[string]Pinger
	// Optional dependencies are reported but never fail the check.
	optional map[string]Pinger
	timeout  time.Duration
}

// NewHealthHandler creates a health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		required: make(map[string]Pinger),
		optional: make(map[string]Pinger),
		timeout:  2 * time.Second,
	}
}

// Require adds a dependency that must be reachable.
func (h *HealthHandler) Require(name string, p Pinger) *HealthHandler {
	h.required[name] = p
	return h
}

// Optional adds a dependency whose outage degrades but does not fail the check.
func (h *HealthHandler) Optional(name string, p Pinger) *HealthHandler {
	h.optional[name] = p
	return h
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string)}
	status := http.StatusOK

	for name, p := range h.required {
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = "down"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	for name, p := range h.optional {
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = "down"
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[name] = "up"
	}

	writeJSON(w, status, resp)
}
