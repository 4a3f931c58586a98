// Package service provides business logic for the Hola Lucia API.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/metrics"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/repository"
)

// EntitlementService resolves what a tenant may do on its current plan.
type EntitlementService interface {
	// GetEntitlements resolves the tenant's plan against its live usage.
	GetEntitlements(ctx context.Context, tenantID uuid.UUID) (*Entitlements, error)

	// CheckFeature gates a feature that needs at least the required tier.
	CheckFeature(ctx context.Context, tenantID uuid.UUID, required models.Plan, mode entitlement.GuardMode) (*entitlement.Decision, error)

	// EnsureCanInviteUser returns a 402 error when the seat limit is reached.
	EnsureCanInviteUser(ctx context.Context, tenantID uuid.UUID) error

	// EnsureCanCreateProvider returns a 402 error when the provider limit is reached.
	EnsureCanCreateProvider(ctx context.Context, tenantID uuid.UUID) error

	// EnsureAI returns a 402 error when the plan does not include AI.
	EnsureAI(ctx context.Context, tenantID uuid.UUID) error

	// UsageHistory returns the metered counters of the last months billing
	// periods, the current one included.
	UsageHistory(ctx context.Context, tenantID uuid.UUID, months int) ([]*models.UsageMetric, error)
}

// MaxUsageHistoryMonths bounds UsageHistory.
const MaxUsageHistoryMonths = 12

// Entitlements is the resolver result plus the tier to offer when usage is high.
type Entitlements struct {
	entitlement.Result
	SuggestedPlan models.Plan `json:"suggested_plan,omitempty"`
}

type entitlementService struct {
	tenantRepo repository.TenantRepository
	usageRepo  repository.UsageRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewEntitlementService creates a new entitlement service.
func NewEntitlementService(
	tenantRepo repository.TenantRepository,
	usageRepo repository.UsageRepository,
	logger *slog.Logger,
) EntitlementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &entitlementService{
		tenantRepo: tenantRepo,
		usageRepo:  usageRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *entitlementService) currentTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if tenant == nil {
		return nil, apierrors.NewNotFoundError("Tenant")
	}
	return tenant, nil
}

func (s *entitlementService) resolve(ctx context.Context, tenantID uuid.UUID) (entitlement.Result, error) {
	tenant, err := s.currentTenant(ctx, tenantID)
	if err != nil {
		return entitlement.Result{}, err
	}

	usage, err := s.usageRepo.GetSnapshot(ctx, tenantID)
	if err != nil {
		return entitlement.Result{}, fmt.Errorf("load usage: %w", err)
	}

	if !models.ValidPlan(tenant.Plan) {
		s.logger.Warn("tenant has unrecognized plan, resolving as LITE",
			slog.String("tenant_id", tenantID.String()),
			slog.String("plan", string(tenant.Plan)),
		)
	}
	return entitlement.Resolve(tenant.Plan, usage), nil
}

// GetEntitlements resolves the tenant's plan against its live usage.
func (s *entitlementService) GetEntitlements(ctx context.Context, tenantID uuid.UUID) (*Entitlements, error) {
	result, err := s.resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := &Entitlements{Result: result}
	if next, ok := entitlement.SuggestUpgrade(result); ok {
		out.SuggestedPlan = next
	}
	return out, nil
}

// CheckFeature gates a feature that needs at least the required tier.
func (s *entitlementService) CheckFeature(ctx context.Context, tenantID uuid.UUID, required models.Plan, mode entitlement.GuardMode) (*entitlement.Decision, error) {
	if !models.ValidPlan(required) {
		return nil, apierrors.NewValidationError("required", fmt.Sprintf("unknown plan %q", required))
	}

	tenant, err := s.currentTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	decision := entitlement.Check(tenant.Plan, required, mode)
	metrics.RecordEntitlementCheck(tenant.Plan, decision.Allowed)
	return &decision, nil
}

// EnsureCanInviteUser returns a 402 error when the seat limit is reached.
func (s *entitlementService) EnsureCanInviteUser(ctx context.Context, tenantID uuid.UUID) error {
	result, err := s.resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	metrics.RecordEntitlementCheck(result.Plan, result.CanInviteUser)
	if !result.CanInviteUser {
		return apierrors.NewQuotaExceededError("max_users", result.Limits.MaxUsers, result.Plan)
	}
	return nil
}

// EnsureCanCreateProvider returns a 402 error when the provider limit is reached.
func (s *entitlementService) EnsureCanCreateProvider(ctx context.Context, tenantID uuid.UUID) error {
	result, err := s.resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	metrics.RecordEntitlementCheck(result.Plan, result.CanCreateProvider)
	if !result.CanCreateProvider {
		return apierrors.NewQuotaExceededError("max_providers", result.Limits.MaxProviders, result.Plan)
	}
	return nil
}

// EnsureAI returns a 402 error when the plan does not include AI.
func (s *entitlementService) EnsureAI(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.currentTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	limits := models.GetPlanLimits(tenant.Plan)
	metrics.RecordEntitlementCheck(tenant.Plan, limits.AIEnabled)
	if !limits.AIEnabled {
		current := tenant.Plan
		if !models.ValidPlan(current) {
			current = models.PlanLite
		}
		return apierrors.NewUpgradeRequiredError(current, models.LowestPlanWithAI())
	}
	return nil
}

// UsageHistory returns the metered counters of the last months billing
// periods, the current one included.
func (s *entitlementService) UsageHistory(ctx context.Context, tenantID uuid.UUID, months int) ([]*models.UsageMetric, error) {
	if months < 1 || months > MaxUsageHistoryMonths {
		return nil, apierrors.NewValidationError("months", fmt.Sprintf("months must be between 1 and %d", MaxUsageHistoryMonths))
	}
	if _, err := s.currentTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	now := s.now()
	from := repository.PeriodStart(now).AddDate(0, -(months - 1), 0)
	rows, err := s.usageRepo.ListByTenant(ctx, tenantID, from, repository.PeriodEnd(now))
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	if rows == nil {
		rows = []*models.UsageMetric{}
	}
	return rows, nil
}

// Compile-time check to ensure entitlementService implements EntitlementService.
var _ EntitlementService = (*entitlementService)(nil)
