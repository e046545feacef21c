package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/remindr/internal/auth"
	"github.com/dukerupert/remindr/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withPrincipal(userID uuid.UUID, email string) context.Context {
	return domain.NewContextWithPrincipal(context.Background(), &domain.Principal{UserID: userID, Email: email})
}

// mockAccounts implements domain.AccountRepository with in-memory rows.
type mockAccounts struct {
	customers map[uuid.UUID]string
	created   map[uuid.UUID]time.Time
	plans     map[string]domain.Plan

	BillingCustomerIDFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	CreatedAtFunc           func(ctx context.Context, userID uuid.UUID) (time.Time, error)
	LinkBillingCustomerFunc func(ctx context.Context, userID uuid.UUID, customerID string) error
	SetPlanFunc             func(ctx context.Context, customerID string, plan domain.Plan) error

	CallLog []string
}

var _ domain.AccountRepository = (*mockAccounts)(nil)

func newMockAccounts() *mockAccounts {
	return &mockAccounts{
		customers: map[uuid.UUID]string{},
		created:   map[uuid.UUID]time.Time{},
		plans:     map[string]domain.Plan{},
	}
}

func (m *mockAccounts) addUser(userID uuid.UUID, createdAt time.Time, customerID string) {
	m.created[userID] = createdAt
	m.customers[userID] = customerID
}

func (m *mockAccounts) BillingCustomerID(ctx context.Context, userID uuid.UUID) (string, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("BillingCustomerID(%s)", userID))
	if m.BillingCustomerIDFunc != nil {
		return m.BillingCustomerIDFunc(ctx, userID)
	}
	customerID, ok := m.customers[userID]
	if !ok {
		return "", domain.NotFound("account.billing_customer_id", "user", userID.String())
	}
	return customerID, nil
}

func (m *mockAccounts) CreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatedAt(%s)", userID))
	if m.CreatedAtFunc != nil {
		return m.CreatedAtFunc(ctx, userID)
	}
	createdAt, ok := m.created[userID]
	if !ok {
		return time.Time{}, domain.NotFound("account.created_at", "user", userID.String())
	}
	return createdAt, nil
}

func (m *mockAccounts) LinkBillingCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("LinkBillingCustomer(%s, %s)", userID, customerID))
	if m.LinkBillingCustomerFunc != nil {
		return m.LinkBillingCustomerFunc(ctx, userID, customerID)
	}
	existing, ok := m.customers[userID]
	if !ok {
		return domain.NotFound("account.link_billing_customer", "user", userID.String())
	}
	if existing != "" && existing != customerID {
		return domain.Errorf(domain.ECONFLICT, "account.link_billing_customer", "already linked")
	}
	m.customers[userID] = customerID
	return nil
}

func (m *mockAccounts) SetPlan(ctx context.Context, customerID string, plan domain.Plan) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("SetPlan(%s, %s)", customerID, plan))
	if m.SetPlanFunc != nil {
		return m.SetPlanFunc(ctx, customerID, plan)
	}
	for _, c := range m.customers {
		if c == customerID {
			m.plans[customerID] = plan
			return nil
		}
	}
	return domain.NotFound("account.set_plan", "billing customer", customerID)
}

// mockExchanger implements CodeExchanger.
type mockExchanger struct {
	session *auth.Session
	err     error
	calls   []string
}

func (m *mockExchanger) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*auth.Session, error) {
	m.calls = append(m.calls, code+":"+codeVerifier)
	return m.session, m.err
}

// mockEvents implements domain.EventRepository.
type mockEvents struct {
	events []domain.Event
	err    error
	calls  []domain.TimeRange
	users  []uuid.UUID
}

func (m *mockEvents) ListInRange(ctx context.Context, userID uuid.UUID, tr domain.TimeRange) ([]domain.Event, error) {
	m.calls = append(m.calls, tr)
	m.users = append(m.users, userID)
	return m.events, m.err
}

// mockLedger implements EventLedger.
type mockLedger struct {
	seen       map[string]bool
	markErr    error
	releaseErr error
	released   []string
}

func newMockLedger() *mockLedger {
	return &mockLedger{seen: map[string]bool{}}
}

func (m *mockLedger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if m.markErr != nil {
		return false, m.markErr
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *mockLedger) Release(ctx context.Context, eventID string) error {
	m.released = append(m.released, eventID)
	delete(m.seen, eventID)
	return m.releaseErr
}
