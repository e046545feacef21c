package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates hosted checkout and portal flows without calling the Stripe API.
type MockProvider struct {
	// Unconfigured makes Configured report false. The zero value is configured.
	Unconfigured bool

	// CreateCheckoutSessionFunc allows customizing checkout session creation behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// CreatePortalSessionFunc allows customizing portal session creation behavior
	CreatePortalSessionFunc func(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error)

	// ConstructEventFunc allows customizing webhook verification behavior
	ConstructEventFunc func(payload []byte, signatureHeader string) (*Event, error)

	// CheckoutSessions stores the parameters of every created checkout session
	CheckoutSessions []CreateCheckoutSessionParams

	// PortalSessions stores the parameters of every created portal session
	PortalSessions []CreatePortalSessionParams

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new configured mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{CallLog: []string{}}
}

// Configured reports whether the mock pretends to hold real credentials.
func (m *MockProvider) Configured() bool {
	return !m.Unconfigured
}

// CreateCheckoutSession creates a mock checkout session.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateCheckoutSession(%s)", params.PriceID))

	if m.Unconfigured {
		return nil, ErrNotConfigured
	}
	m.CheckoutSessions = append(m.CheckoutSessions, params)

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	id := "cs_test_" + uuid.New().String()[:8]
	return &CheckoutSession{
		ID:  id,
		URL: "https://checkout.stripe.test/c/pay/" + id,
	}, nil
}

// CreatePortalSession creates a mock billing portal session.
func (m *MockProvider) CreatePortalSession(ctx context.Context, params CreatePortalSessionParams) (*PortalSession, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatePortalSession(%s)", params.CustomerID))

	if m.Unconfigured {
		return nil, ErrNotConfigured
	}
	m.PortalSessions = append(m.PortalSessions, params)

	if m.CreatePortalSessionFunc != nil {
		return m.CreatePortalSessionFunc(ctx, params)
	}

	id := "bps_" + uuid.New().String()[:8]
	return &PortalSession{
		ID:  id,
		URL: "https://billing.stripe.test/p/session/" + id,
	}, nil
}

// ConstructEvent decodes a mock webhook event.
// Default behavior accepts any signature and decodes the payload as an event envelope.
func (m *MockProvider) ConstructEvent(payload []byte, signatureHeader string) (*Event, error) {
	m.CallLog = append(m.CallLog, "ConstructEvent")

	if m.ConstructEventFunc != nil {
		return m.ConstructEventFunc(payload, signatureHeader)
	}

	var envelope struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	return &Event{
		ID:      envelope.ID,
		Type:    envelope.Type,
		Created: time.Unix(envelope.Created, 0),
		Data:    envelope.Data.Object,
	}, nil
}

// Calls returns the number of provider calls made so far.
func (m *MockProvider) Calls() int {
	return len(m.CallLog)
}
