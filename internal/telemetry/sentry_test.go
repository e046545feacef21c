package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSentry_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cleanup, err := InitSentry(SentryConfig{Enabled: false}, logger)
	require.NoError(t, err)
	cleanup()
	assert.False(t, IsEnabled())

	cleanup, err = InitSentry(SentryConfig{Enabled: true}, logger)
	require.NoError(t, err)
	cleanup()
	assert.False(t, IsEnabled(), "missing DSN disables capture")
}

func TestDisabledHelpersAreNoops(t *testing.T) {
	sentryInstance = nil

	ctx := context.Background()
	assert.NotPanics(t, func() {
		CaptureErrorFromContext(ctx, errors.New("boom"), map[string]interface{}{"op": "test"})
		AddBreadcrumb(ctx, "billing", "checkout", nil)
	})

	spanCtx, finish := StartSpan(ctx, "stripe", "create checkout session")
	assert.Equal(t, ctx, spanCtx)
	finish()
}

func TestSentryMiddleware_PassThroughWhenDisabled(t *testing.T) {
	sentryInstance = nil

	called := false
	h := SentryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHTTPTransport_DefaultsToDefaultTransport(t *testing.T) {
	sentryInstance = nil

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &HTTPTransport{}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
