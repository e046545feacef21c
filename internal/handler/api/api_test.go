package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/remindr/internal/billing"
	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/service"
)

// stubAccounts implements domain.AccountRepository for handler tests.
type stubAccounts struct {
	customerID string
	err        error
	calls      int
}

func (s *stubAccounts) BillingCustomerID(ctx context.Context, userID uuid.UUID) (string, error) {
	s.calls++
	return s.customerID, s.err
}

func (s *stubAccounts) CreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	return time.Time{}, errors.New("not used")
}

func (s *stubAccounts) LinkBillingCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	return errors.New("not used")
}

func (s *stubAccounts) SetPlan(ctx context.Context, customerID string, plan domain.Plan) error {
	return errors.New("not used")
}

// stubEvents implements domain.EventRepository.
type stubEvents struct {
	events []domain.Event
	got    *domain.TimeRange
	userID uuid.UUID
}

func (s *stubEvents) ListInRange(ctx context.Context, userID uuid.UUID, tr domain.TimeRange) ([]domain.Event, error) {
	s.userID = userID
	s.got = &tr
	return s.events, nil
}

func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := domain.NewContextWithPrincipal(r.Context(), &domain.Principal{UserID: userID, Email: "ada@example.com"})
	return r.WithContext(ctx)
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func newBillingHandler(provider *billing.MockProvider, accounts *stubAccounts) *BillingHandler {
	svc := service.NewBillingService(provider, accounts, service.BillingConfig{
		AppURL:   "https://app.remindr.test",
		PriceIDs: []string{"price_pro_monthly"},
	}, nil)
	return NewBillingHandler(svc)
}

func TestBillingHandler_CreateCheckoutSession(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name         string
		unconfigured bool
		signedIn     bool
		body         string
		contentType  string
		wantStatus   int
		wantCode     string
		wantCalls    int
	}{
		{
			name:       "success",
			signedIn:   true,
			body:       `{"priceId":"price_pro_monthly","plan":"pro"}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:         "not configured before auth",
			unconfigured: true,
			body:         `{"priceId":"price_pro_monthly"}`,
			wantStatus:   http.StatusInternalServerError,
			wantCode:     domain.ECONFIG,
		},
		{
			name:       "unauthenticated",
			body:       `{"priceId":"price_pro_monthly"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   domain.EUNAUTHORIZED,
		},
		{
			name:       "missing price",
			signedIn:   true,
			body:       `{"plan":"pro"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.EINVALID,
		},
		{
			name:       "unknown price",
			signedIn:   true,
			body:       `{"priceId":"price_other"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.EINVALID,
		},
		{
			name:       "malformed body",
			signedIn:   true,
			body:       `{"priceId":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.EINVALID,
		},
		{
			name:       "malformed body unauthenticated",
			body:       `{"priceId":`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   domain.EUNAUTHORIZED,
		},
		{
			name:         "malformed body not configured",
			unconfigured: true,
			signedIn:     true,
			body:         `not json`,
			wantStatus:   http.StatusInternalServerError,
			wantCode:     domain.ECONFIG,
		},
		{
			name:        "wrong content type unauthenticated",
			body:        `priceId=price_pro_monthly`,
			contentType: "application/x-www-form-urlencoded",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    domain.EUNAUTHORIZED,
		},
		{
			name:        "wrong content type",
			signedIn:    true,
			body:        `priceId=price_pro_monthly`,
			contentType: "application/x-www-form-urlencoded",
			wantStatus:  http.StatusBadRequest,
			wantCode:    domain.EINVALID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := billing.NewMockProvider()
			provider.Unconfigured = tt.unconfigured
			h := newBillingHandler(provider, &stubAccounts{})

			req := httptest.NewRequest(http.MethodPost, "/api/stripe/create-checkout-session", strings.NewReader(tt.body))
			contentType := "application/json"
			if tt.contentType != "" {
				contentType = tt.contentType
			}
			req.Header.Set("Content-Type", contentType)
			if tt.signedIn {
				req = asUser(req, userID)
			}
			rec := httptest.NewRecorder()

			h.CreateCheckoutSession(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Len(t, provider.CheckoutSessions, tt.wantCalls)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeErrorCode(t, rec))
				return
			}

			var result service.CheckoutResult
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
			assert.NotEmpty(t, result.SessionID)
			assert.NotEmpty(t, result.URL)
			assert.Equal(t, userID.String(), provider.CheckoutSessions[0].ClientReferenceID)
		})
	}
}

func TestBillingHandler_CreateCheckoutSession_ProviderErrorIsGeneric(t *testing.T) {
	provider := billing.NewMockProvider()
	provider.CreateCheckoutSessionFunc = func(ctx context.Context, params billing.CreateCheckoutSessionParams) (*billing.CheckoutSession, error) {
		return nil, &billing.StripeError{Message: "No such price: 'price_pro_monthly'", Code: "resource_missing"}
	}
	h := newBillingHandler(provider, &stubAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/create-checkout-session", strings.NewReader(`{"priceId":"price_pro_monthly"}`))
	req = asUser(req, uuid.New())
	rec := httptest.NewRecorder()

	h.CreateCheckoutSession(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "No such price")
	assert.NotContains(t, rec.Body.String(), "resource_missing")
}

func TestBillingHandler_CreatePortalSession(t *testing.T) {
	tests := []struct {
		name       string
		signedIn   bool
		customerID string
		storeErr   error
		wantStatus int
		wantCalls  int
	}{
		{name: "success", signedIn: true, customerID: "cus_123", wantStatus: http.StatusOK, wantCalls: 1},
		{name: "unauthenticated", wantStatus: http.StatusUnauthorized},
		{name: "no billing customer", signedIn: true, wantStatus: http.StatusNotFound},
		{name: "store failure", signedIn: true, storeErr: errors.New("conn reset"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := billing.NewMockProvider()
			accounts := &stubAccounts{customerID: tt.customerID, err: tt.storeErr}
			h := newBillingHandler(provider, accounts)

			req := httptest.NewRequest(http.MethodPost, "/api/stripe/create-portal-session", nil)
			if tt.signedIn {
				req = asUser(req, uuid.New())
			}
			rec := httptest.NewRecorder()

			h.CreatePortalSession(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Len(t, provider.PortalSessions, tt.wantCalls)
			if !tt.signedIn {
				assert.Zero(t, accounts.calls, "store must not be read without a principal")
			}
			if tt.wantStatus == http.StatusOK {
				var result service.PortalResult
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
				assert.NotEmpty(t, result.URL)
				assert.Equal(t, "https://app.remindr.test/settings/billing", provider.PortalSessions[0].ReturnURL)
			}
		})
	}
}

func TestEventsHandler_List(t *testing.T) {
	userID := uuid.New()
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	t.Run("returns events in range", func(t *testing.T) {
		repo := &stubEvents{events: []domain.Event{
			{ID: uuid.New(), UserID: userID, Title: "Standup", StartTime: from.Add(time.Hour), EndTime: from.Add(2 * time.Hour)},
		}}
		h := NewEventsHandler(service.NewEventService(repo, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/events?from="+from.Format(time.RFC3339)+"&to="+to.Format(time.RFC3339), nil)
		rec := httptest.NewRecorder()
		h.List(rec, asUser(req, userID))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Events []domain.Event `json:"events"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Len(t, body.Events, 1)
		assert.Equal(t, "Standup", body.Events[0].Title)

		assert.Equal(t, userID, repo.userID)
		assert.True(t, from.Equal(repo.got.From))
		assert.True(t, to.Equal(repo.got.To))
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		h := NewEventsHandler(service.NewEventService(&stubEvents{events: []domain.Event{}}, nil))

		rec := httptest.NewRecorder()
		h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/events", nil), userID))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
	})

	t.Run("unauthenticated runs no query", func(t *testing.T) {
		repo := &stubEvents{}
		h := NewEventsHandler(service.NewEventService(repo, nil))

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, repo.got)
	})

	t.Run("bad timestamps", func(t *testing.T) {
		repo := &stubEvents{}
		h := NewEventsHandler(service.NewEventService(repo, nil))

		rec := httptest.NewRecorder()
		h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/events?from=yesterday&to=2026-13-01", nil), userID))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Error struct {
				Fields map[string]string `json:"fields"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Contains(t, body.Error.Fields, "from")
		assert.Contains(t, body.Error.Fields, "to")
		assert.Nil(t, repo.got)
	})

	t.Run("inverted range", func(t *testing.T) {
		repo := &stubEvents{}
		h := NewEventsHandler(service.NewEventService(repo, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/events?from="+to.Format(time.RFC3339)+"&to="+from.Format(time.RFC3339), nil)
		rec := httptest.NewRecorder()
		h.List(rec, asUser(req, userID))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, repo.got)
	})
}
