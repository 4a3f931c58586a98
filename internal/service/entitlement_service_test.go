package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
)

func newEntitlementFixture(plan models.Plan) (EntitlementService, *models.Tenant, *mockUsageRepo) {
	tenant := newTenant(plan)
	usage := newMockUsageRepo()
	svc := NewEntitlementService(newMockTenantRepo(tenant), usage, nil)
	return svc, tenant, usage
}

func TestEntitlementService_GetEntitlements(t *testing.T) {
	svc, tenant, usage := newEntitlementFixture(models.PlanPro)
	usage.snapshots[tenant.ID] = &entitlement.Usage{
		Messages:  entitlement.Int64(1700),
		Users:     entitlement.Int64(2),
		Providers: entitlement.Int64(1),
	}

	got, err := svc.GetEntitlements(context.Background(), tenant.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PlanPro, got.Plan)
	assert.False(t, got.CanUseAI)
	assert.True(t, got.CanInviteUser)
	assert.True(t, got.IsUsageHigh, "1700 of 2000 messages is above 80%")
	assert.Equal(t, models.PlanBusiness, got.SuggestedPlan)
}

func TestEntitlementService_GetEntitlements_NormalUsageHasNoSuggestion(t *testing.T) {
	svc, tenant, _ := newEntitlementFixture(models.PlanLite)

	got, err := svc.GetEntitlements(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.False(t, got.IsUsageHigh)
	assert.Empty(t, got.SuggestedPlan)
	assert.Equal(t, int64(1), got.Usage.Users)
}

func TestEntitlementService_UnknownPlanResolvesAsLite(t *testing.T) {
	svc, tenant, _ := newEntitlementFixture(models.Plan("Pro"))

	got, err := svc.GetEntitlements(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanLite, got.Plan)
	assert.Equal(t, models.PlanLimitsMap[models.PlanLite], got.Limits)
}

func TestEntitlementService_TenantNotFound(t *testing.T) {
	svc, _, _ := newEntitlementFixture(models.PlanPro)

	_, err := svc.GetEntitlements(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apierrors.AsAPIError(err).StatusCode)
}

func TestEntitlementService_RepositoryErrorsPropagate(t *testing.T) {
	svc, tenant, usage := newEntitlementFixture(models.PlanPro)
	usage.err = errDB

	_, err := svc.GetEntitlements(context.Background(), tenant.ID)
	assert.ErrorIs(t, err, errDB)
	assert.False(t, apierrors.IsAPIError(err))
}

func TestEntitlementService_CheckFeature(t *testing.T) {
	tests := []struct {
		name      string
		plan      models.Plan
		required  models.Plan
		allowed   bool
		upgradeTo models.Plan
	}{
		{name: "same tier", plan: models.PlanPro, required: models.PlanPro, allowed: true},
		{name: "higher tier", plan: models.PlanEnterprise, required: models.PlanBusiness, allowed: true},
		{name: "lower tier", plan: models.PlanLite, required: models.PlanBusiness, upgradeTo: models.PlanBusiness},
		{name: "unknown current ranks as lite", plan: "gold", required: models.PlanPro, upgradeTo: models.PlanPro},
		{name: "lite feature always open", plan: "gold", required: models.PlanLite, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tenant, _ := newEntitlementFixture(tt.plan)

			d, err := svc.CheckFeature(context.Background(), tenant.ID, tt.required, entitlement.GuardModeOverlay)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.upgradeTo, d.UpgradeTo)
			assert.Equal(t, entitlement.GuardModeOverlay, d.Mode)
		})
	}
}

func TestEntitlementService_CheckFeature_InvalidRequired(t *testing.T) {
	svc, tenant, _ := newEntitlementFixture(models.PlanPro)

	_, err := svc.CheckFeature(context.Background(), tenant.ID, "PLATINUM", entitlement.GuardModeBlock)
	require.Error(t, err)
	assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)
}

func TestEntitlementService_EnsureCanInviteUser(t *testing.T) {
	tests := []struct {
		name    string
		plan    models.Plan
		users   int64
		wantErr bool
	}{
		{name: "lite owner only", plan: models.PlanLite, users: 1, wantErr: true},
		{name: "pro with room", plan: models.PlanPro, users: 4},
		{name: "pro full", plan: models.PlanPro, users: 5, wantErr: true},
		{name: "enterprise", plan: models.PlanEnterprise, users: 49},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tenant, usage := newEntitlementFixture(tt.plan)
			usage.snapshots[tenant.ID] = &entitlement.Usage{Users: entitlement.Int64(tt.users)}

			err := svc.EnsureCanInviteUser(context.Background(), tenant.ID)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			apiErr := apierrors.AsAPIError(err)
			assert.Equal(t, "quota_exceeded", apiErr.Code)
			assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
		})
	}
}

func TestEntitlementService_EnsureCanCreateProvider(t *testing.T) {
	svc, tenant, usage := newEntitlementFixture(models.PlanLite)

	usage.snapshots[tenant.ID] = &entitlement.Usage{Providers: entitlement.Int64(0)}
	assert.NoError(t, svc.EnsureCanCreateProvider(context.Background(), tenant.ID))

	usage.snapshots[tenant.ID] = &entitlement.Usage{Providers: entitlement.Int64(1)}
	err := svc.EnsureCanCreateProvider(context.Background(), tenant.ID)
	assert.Equal(t, "quota_exceeded", apierrors.AsAPIError(err).Code)
}

func TestEntitlementService_EnsureAI(t *testing.T) {
	for _, plan := range []models.Plan{models.PlanBusiness, models.PlanEnterprise} {
		svc, tenant, _ := newEntitlementFixture(plan)
		assert.NoError(t, svc.EnsureAI(context.Background(), tenant.ID), plan)
	}

	svc, tenant, _ := newEntitlementFixture(models.PlanPro)
	err := svc.EnsureAI(context.Background(), tenant.ID)
	apiErr := apierrors.AsAPIError(err)
	assert.Equal(t, "upgrade_required", apiErr.Code)
	assert.Equal(t, map[string]string{"current_plan": "PRO", "required_plan": "BUSINESS"}, apiErr.Details)
}

func TestEntitlementService_UsageHistory(t *testing.T) {
	svc, tenant, usage := newEntitlementFixture(models.PlanPro)
	svc.(*entitlementService).now = func() time.Time {
		return time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC)
	}

	period := func(month time.Month, metric models.MetricType, value int64) *models.UsageMetric {
		start := time.Date(2026, month, 1, 0, 0, 0, 0, time.UTC)
		return &models.UsageMetric{
			TenantID:    tenant.ID,
			Metric:      metric,
			Value:       value,
			PeriodStart: start,
			PeriodEnd:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
		}
	}
	usage.history[tenant.ID] = []*models.UsageMetric{
		period(time.January, models.MetricTypeMessages, 900),
		period(time.February, models.MetricTypeMessages, 1200),
		period(time.March, models.MetricTypeMessages, 300),
		period(time.March, models.MetricTypeBookings, 12),
	}

	current, err := svc.UsageHistory(context.Background(), tenant.ID, 1)
	require.NoError(t, err)
	assert.Len(t, current, 2)

	quarter, err := svc.UsageHistory(context.Background(), tenant.ID, 3)
	require.NoError(t, err)
	assert.Len(t, quarter, 4)
}

func TestEntitlementService_UsageHistory_Errors(t *testing.T) {
	svc, tenant, _ := newEntitlementFixture(models.PlanLite)

	for _, months := range []int{0, -1, MaxUsageHistoryMonths + 1} {
		_, err := svc.UsageHistory(context.Background(), tenant.ID, months)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apierrors.AsAPIError(err).StatusCode, months)
	}

	empty, err := svc.UsageHistory(context.Background(), tenant.ID, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.UsageHistory(context.Background(), uuid.New(), 1)
	assert.Equal(t, http.StatusNotFound, apierrors.AsAPIError(err).StatusCode)
}
