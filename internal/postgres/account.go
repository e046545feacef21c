package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/remindr/internal/domain"
)

// AccountStore implements domain.AccountRepository using PostgreSQL.
// It runs with the service role, so every query is keyed explicitly.
type AccountStore struct {
	db DBTX
}

// Compile-time check to ensure AccountStore implements domain.AccountRepository.
var _ domain.AccountRepository = (*AccountStore)(nil)

// NewAccountStore creates a new AccountStore instance.
func NewAccountStore(db DBTX) *AccountStore {
	return &AccountStore{db: db}
}

const getBillingCustomerID = `SELECT stripe_customer_id FROM users WHERE id = $1`

// BillingCustomerID returns the stored Stripe customer id, or "" when none is linked.
func (s *AccountStore) BillingCustomerID(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "account.billing_customer_id"

	var customerID pgtype.Text
	err := s.db.QueryRow(ctx, getBillingCustomerID, pgUUID(userID)).Scan(&customerID)
	if isNoRows(err) {
		return "", domain.NotFound(op, "user", userID.String())
	}
	if err != nil {
		return "", domain.Internal(err, op, "failed to load billing customer")
	}

	return textOrEmpty(customerID), nil
}

const getCreatedAt = `SELECT created_at FROM users WHERE id = $1`

// CreatedAt returns when the account row was created.
func (s *AccountStore) CreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	const op = "account.created_at"

	var createdAt pgtype.Timestamptz
	err := s.db.QueryRow(ctx, getCreatedAt, pgUUID(userID)).Scan(&createdAt)
	if isNoRows(err) {
		return time.Time{}, domain.NotFound(op, "user", userID.String())
	}
	if err != nil {
		return time.Time{}, domain.Internal(err, op, "failed to load account")
	}

	return createdAt.Time, nil
}

const linkBillingCustomer = `
UPDATE users
SET stripe_customer_id = $2, updated_at = NOW()
WHERE id = $1 AND (stripe_customer_id IS NULL OR stripe_customer_id = $2)`

// LinkBillingCustomer stores customerID on the account. Relinking the same
// customer is a no-op; replacing a different customer is a conflict.
func (s *AccountStore) LinkBillingCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	const op = "account.link_billing_customer"

	if customerID == "" {
		return domain.Invalid(op, "customer id is required")
	}

	tag, err := s.db.Exec(ctx, linkBillingCustomer, pgUUID(userID), customerID)
	if isUniqueViolation(err) {
		return domain.Errorf(domain.ECONFLICT, op, "customer %s is linked to another account", customerID)
	}
	if err != nil {
		return domain.Internal(err, op, "failed to link billing customer")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Either the user is missing or already has a different customer.
	existing, err := s.BillingCustomerID(ctx, userID)
	if err != nil {
		return err
	}
	return domain.Errorf(domain.ECONFLICT, op, "account already linked to %s", existing)
}

const setPlanByCustomer = `
UPDATE users
SET plan = $2, updated_at = NOW()
WHERE stripe_customer_id = $1`

// SetPlan updates the plan of the account linked to customerID.
func (s *AccountStore) SetPlan(ctx context.Context, customerID string, plan domain.Plan) error {
	const op = "account.set_plan"

	if !plan.Valid() {
		return domain.Errorf(domain.EINVALID, op, "unknown plan %q", plan)
	}

	tag, err := s.db.Exec(ctx, setPlanByCustomer, customerID, string(plan))
	if err != nil {
		return domain.Internal(err, op, "failed to update plan")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "billing customer", customerID)
	}
	return nil
}
