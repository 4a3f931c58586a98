package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
)

// TenantRepository defines the interface for tenant data operations.
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*models.Tenant, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, plan models.Plan) error
	UpdateStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error
	UpdateStripeSubscription(ctx context.Context, id uuid.UUID, subscriptionID string) error
	ClearStripeSubscription(ctx context.Context, id uuid.UUID) error
}

type tenantRepo struct {
	pool *pgxpool.Pool
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepo{pool: pool}
}

const tenantColumns = `id, name, slug, plan, stripe_customer_id, stripe_subscription_id, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Plan,
		&t.StripeCustomerID,
		&t.StripeSubscriptionID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID retrieves a tenant by its UUID.
func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.pool.QueryRow(ctx, query, id))
}

// GetByStripeCustomer retrieves the tenant billed under a Stripe customer.
func (r *tenantRepo) GetByStripeCustomer(ctx context.Context, customerID string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE stripe_customer_id = $1`
	return scanTenant(r.pool.QueryRow(ctx, query, customerID))
}

// UpdatePlan stores the tenant's tier exactly as given.
func (r *tenantRepo) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.Plan) error {
	query := `UPDATE tenants SET plan = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, plan)
	return err
}

// UpdateStripeCustomer links a Stripe customer to the tenant.
func (r *tenantRepo) UpdateStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	query := `UPDATE tenants SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, customerID)
	return err
}

// UpdateStripeSubscription records the active subscription.
func (r *tenantRepo) UpdateStripeSubscription(ctx context.Context, id uuid.UUID, subscriptionID string) error {
	query := `UPDATE tenants SET stripe_subscription_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, subscriptionID)
	return err
}

// ClearStripeSubscription forgets the subscription after cancellation.
func (r *tenantRepo) ClearStripeSubscription(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tenants SET stripe_subscription_id = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// Compile-time check to ensure tenantRepo implements TenantRepository.
var _ TenantRepository = (*tenantRepo)(nil)
