package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/remindr/internal/billing"
	"github.com/dukerupert/remindr/internal/domain"
)

var testBillingConfig = BillingConfig{
	AppURL:   "https://app.example.com/",
	PriceIDs: []string{"price_pro_monthly", "price_pro_yearly"},
}

func TestBillingService_CreateCheckoutSession(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name      string
		ctx       context.Context
		req       CheckoutRequest
		setupMock func(*billing.MockProvider)
		wantCode  string
		wantCalls int
	}{
		{
			name:      "creates session",
			ctx:       withPrincipal(userID, "ada@example.com"),
			req:       CheckoutRequest{PriceID: "price_pro_monthly", Plan: "pro"},
			wantCalls: 1,
		},
		{
			name:      "unconfigured provider fails before auth",
			ctx:       context.Background(),
			req:       CheckoutRequest{PriceID: "price_pro_monthly"},
			setupMock: func(m *billing.MockProvider) { m.Unconfigured = true },
			wantCode:  domain.ECONFIG,
		},
		{
			name:      "unconfigured provider with principal",
			ctx:       withPrincipal(userID, "ada@example.com"),
			req:       CheckoutRequest{PriceID: "price_pro_monthly"},
			setupMock: func(m *billing.MockProvider) { m.Unconfigured = true },
			wantCode:  domain.ECONFIG,
		},
		{
			name:     "no principal",
			ctx:      context.Background(),
			req:      CheckoutRequest{PriceID: "price_pro_monthly"},
			wantCode: domain.EUNAUTHORIZED,
		},
		{
			name:     "missing price",
			ctx:      withPrincipal(userID, "ada@example.com"),
			req:      CheckoutRequest{},
			wantCode: domain.EINVALID,
		},
		{
			name:     "price not offered",
			ctx:      withPrincipal(userID, "ada@example.com"),
			req:      CheckoutRequest{PriceID: "price_free_lunch"},
			wantCode: domain.EINVALID,
		},
		{
			name: "provider failure is generic",
			ctx:  withPrincipal(userID, "ada@example.com"),
			req:  CheckoutRequest{PriceID: "price_pro_monthly"},
			setupMock: func(m *billing.MockProvider) {
				m.CreateCheckoutSessionFunc = func(ctx context.Context, params billing.CreateCheckoutSessionParams) (*billing.CheckoutSession, error) {
					return nil, &billing.StripeError{Message: "No such price: 'price_pro_monthly'", Code: "resource_missing"}
				}
			},
			wantCode:  domain.EINTERNAL,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := billing.NewMockProvider()
			if tt.setupMock != nil {
				tt.setupMock(provider)
			}
			svc := NewBillingService(provider, newMockAccounts(), testBillingConfig, discardLogger())

			result, err := svc.CreateCheckoutSession(tt.ctx, tt.req)

			assert.Len(t, provider.CallLog, tt.wantCalls)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
				assert.NotContains(t, domain.ErrorMessage(err), "No such price")
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, result.SessionID)
			assert.NotEmpty(t, result.URL)
		})
	}
}

func TestBillingService_CreateCheckoutSession_Params(t *testing.T) {
	userID := uuid.New()
	provider := billing.NewMockProvider()
	svc := NewBillingService(provider, newMockAccounts(), testBillingConfig, discardLogger())

	ctx := domain.NewContextWithRequestID(withPrincipal(userID, "ada@example.com"), "req-123")
	_, err := svc.CreateCheckoutSession(ctx, CheckoutRequest{PriceID: "price_pro_yearly", Plan: "Pro"})
	require.NoError(t, err)

	require.Len(t, provider.CheckoutSessions, 1)
	params := provider.CheckoutSessions[0]
	assert.Equal(t, "price_pro_yearly", params.PriceID)
	assert.Equal(t, userID.String(), params.ClientReferenceID)
	assert.Equal(t, userID.String(), params.SubscriptionMetadata[billing.MetadataUserID])
	assert.Equal(t, "ada@example.com", params.CustomerEmail)
	assert.Equal(t, "checkout-req-123", params.IdempotencyKey)
	assert.Equal(t, "https://app.example.com/pricing?checkout=canceled", params.CancelURL)

	success, err := url.Parse(params.SuccessURL)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", success.Path)
	assert.Equal(t, "success", success.Query().Get("checkout"))
	assert.Equal(t, "{CHECKOUT_SESSION_ID}", success.Query().Get("session_id"))
}

func TestBillingService_CreateCheckoutSession_ReusesCustomer(t *testing.T) {
	userID := uuid.New()
	accounts := newMockAccounts()
	accounts.addUser(userID, time.Now().Add(-48*time.Hour), "cus_existing")
	provider := billing.NewMockProvider()
	svc := NewBillingService(provider, accounts, testBillingConfig, discardLogger())

	_, err := svc.CreateCheckoutSession(withPrincipal(userID, "ada@example.com"), CheckoutRequest{PriceID: "price_pro_monthly"})
	require.NoError(t, err)

	require.Len(t, provider.CheckoutSessions, 1)
	params := provider.CheckoutSessions[0]
	assert.Equal(t, "cus_existing", params.CustomerID)
	assert.Empty(t, params.CustomerEmail)

	// The completed checkout reports the same customer, so the account upgrades.
	webhooks := NewWebhookService(provider, accounts, newMockLedger(), discardLogger())
	_, err = webhooks.HandleWebhook(context.Background(), checkoutCompleted(t, "evt_resub", userID, params.CustomerID), "sig")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, accounts.plans["cus_existing"])
}

func TestBillingService_CreateCheckoutSession_CustomerLookup(t *testing.T) {
	userID := uuid.New()

	t.Run("account without customer prefills email", func(t *testing.T) {
		accounts := newMockAccounts()
		accounts.addUser(userID, time.Now(), "")
		provider := billing.NewMockProvider()
		svc := NewBillingService(provider, accounts, testBillingConfig, discardLogger())

		_, err := svc.CreateCheckoutSession(withPrincipal(userID, "ada@example.com"), CheckoutRequest{PriceID: "price_pro_monthly"})
		require.NoError(t, err)

		require.Len(t, provider.CheckoutSessions, 1)
		assert.Empty(t, provider.CheckoutSessions[0].CustomerID)
		assert.Equal(t, "ada@example.com", provider.CheckoutSessions[0].CustomerEmail)
	})

	t.Run("store failure stops before the provider", func(t *testing.T) {
		accounts := newMockAccounts()
		accounts.BillingCustomerIDFunc = func(ctx context.Context, userID uuid.UUID) (string, error) {
			return "", errors.New("conn refused")
		}
		provider := billing.NewMockProvider()
		svc := NewBillingService(provider, accounts, testBillingConfig, discardLogger())

		_, err := svc.CreateCheckoutSession(withPrincipal(userID, "ada@example.com"), CheckoutRequest{PriceID: "price_pro_monthly"})

		assert.True(t, domain.IsCode(err, domain.EINTERNAL))
		assert.Empty(t, provider.CallLog)
	})

	t.Run("invalid request reads nothing", func(t *testing.T) {
		accounts := newMockAccounts()
		svc := NewBillingService(billing.NewMockProvider(), accounts, testBillingConfig, discardLogger())

		_, err := svc.CreateCheckoutSession(withPrincipal(userID, "ada@example.com"), CheckoutRequest{PriceID: "price_free_lunch"})

		assert.True(t, domain.IsCode(err, domain.EINVALID))
		assert.Empty(t, accounts.CallLog)
	})
}

func TestBillingService_AnyPriceWhenNoneConfigured(t *testing.T) {
	provider := billing.NewMockProvider()
	svc := NewBillingService(provider, newMockAccounts(), BillingConfig{AppURL: "http://localhost:3000"}, discardLogger())

	_, err := svc.CreateCheckoutSession(withPrincipal(uuid.New(), "a@example.com"), CheckoutRequest{PriceID: "price_anything"})
	assert.NoError(t, err)
}

func TestBillingService_CreatePortalSession(t *testing.T) {
	withCustomer := uuid.New()
	withoutCustomer := uuid.New()

	tests := []struct {
		name      string
		ctx       context.Context
		setup     func(*billing.MockProvider, *mockAccounts)
		wantCode  string
		wantCalls int
	}{
		{
			name:      "creates portal session",
			ctx:       withPrincipal(withCustomer, "a@example.com"),
			wantCalls: 1,
		},
		{
			name:     "no principal",
			ctx:      context.Background(),
			wantCode: domain.EUNAUTHORIZED,
		},
		{
			name:     "no stored customer",
			ctx:      withPrincipal(withoutCustomer, "b@example.com"),
			wantCode: domain.ENOTFOUND,
		},
		{
			name:     "no account row",
			ctx:      withPrincipal(uuid.New(), "c@example.com"),
			wantCode: domain.ENOTFOUND,
		},
		{
			name: "store failure",
			ctx:  withPrincipal(withCustomer, "a@example.com"),
			setup: func(_ *billing.MockProvider, a *mockAccounts) {
				a.BillingCustomerIDFunc = func(ctx context.Context, userID uuid.UUID) (string, error) {
					return "", errors.New("connection reset")
				}
			},
			wantCode: domain.EINTERNAL,
		},
		{
			name: "provider failure",
			ctx:  withPrincipal(withCustomer, "a@example.com"),
			setup: func(p *billing.MockProvider, _ *mockAccounts) {
				p.CreatePortalSessionFunc = func(ctx context.Context, params billing.CreatePortalSessionParams) (*billing.PortalSession, error) {
					return nil, errors.New("stripe down")
				}
			},
			wantCode:  domain.EINTERNAL,
			wantCalls: 1,
		},
		{
			name: "unconfigured provider",
			ctx:  withPrincipal(withCustomer, "a@example.com"),
			setup: func(p *billing.MockProvider, _ *mockAccounts) {
				p.Unconfigured = true
			},
			wantCode: domain.ECONFIG,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := billing.NewMockProvider()
			accounts := newMockAccounts()
			accounts.addUser(withCustomer, time.Now(), "cus_123")
			accounts.addUser(withoutCustomer, time.Now(), "")
			if tt.setup != nil {
				tt.setup(provider, accounts)
			}
			svc := NewBillingService(provider, accounts, testBillingConfig, discardLogger())

			result, err := svc.CreatePortalSession(tt.ctx)

			assert.Len(t, provider.CallLog, tt.wantCalls)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, result.URL)
			require.Len(t, provider.PortalSessions, 1)
			assert.Equal(t, "cus_123", provider.PortalSessions[0].CustomerID)
			assert.Equal(t, "https://app.example.com/settings/billing", provider.PortalSessions[0].ReturnURL)
		})
	}
}

func TestPlanLabel(t *testing.T) {
	assert.Equal(t, "pro", planLabel(" PRO "))
	assert.Equal(t, "team", planLabel("team"))
	assert.Equal(t, "unknown", planLabel(""))
	assert.Equal(t, "unknown", planLabel("<script>"))
}
