package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/ulid"
)

var errDB = errors.New("db unavailable")

// --- Mock Repositories ---

type mockTenantRepo struct {
	tenants map[uuid.UUID]*models.Tenant
	err     error
}

func newMockTenantRepo(tenants ...*models.Tenant) *mockTenantRepo {
	m := &mockTenantRepo{tenants: make(map[uuid.UUID]*models.Tenant)}
	for _, t := range tenants {
		m.tenants[t.ID] = t
	}
	return m
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tenants[id], nil
}

func (m *mockTenantRepo) GetByStripeCustomer(ctx context.Context, customerID string) (*models.Tenant, error) {
	for _, t := range m.tenants {
		if t.StripeCustomerID != nil && *t.StripeCustomerID == customerID {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTenantRepo) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.Plan) error {
	if t, ok := m.tenants[id]; ok {
		t.Plan = plan
	}
	return nil
}

func (m *mockTenantRepo) UpdateStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	if t, ok := m.tenants[id]; ok {
		t.StripeCustomerID = &customerID
	}
	return nil
}

func (m *mockTenantRepo) UpdateStripeSubscription(ctx context.Context, id uuid.UUID, subscriptionID string) error {
	if t, ok := m.tenants[id]; ok {
		t.StripeSubscriptionID = &subscriptionID
	}
	return nil
}

func (m *mockTenantRepo) ClearStripeSubscription(ctx context.Context, id uuid.UUID) error {
	if t, ok := m.tenants[id]; ok {
		t.StripeSubscriptionID = nil
	}
	return nil
}

type mockUsageRepo struct {
	snapshots map[uuid.UUID]*entitlement.Usage
	history   map[uuid.UUID][]*models.UsageMetric
	err       error
}

func newMockUsageRepo() *mockUsageRepo {
	return &mockUsageRepo{
		snapshots: make(map[uuid.UUID]*entitlement.Usage),
		history:   make(map[uuid.UUID][]*models.UsageMetric),
	}
}

func (m *mockUsageRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) ([]*models.UsageMetric, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.UsageMetric
	for _, row := range m.history[tenantID] {
		if !row.PeriodStart.Before(periodStart) && !row.PeriodEnd.After(periodEnd) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockUsageRepo) GetSnapshot(ctx context.Context, tenantID uuid.UUID) (*entitlement.Usage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot(tenantID), nil
}

func (m *mockUsageRepo) snapshot(tenantID uuid.UUID) *entitlement.Usage {
	u, ok := m.snapshots[tenantID]
	if !ok {
		u = &entitlement.Usage{}
		m.snapshots[tenantID] = u
	}
	return u
}

type mockWorkflowRepo struct {
	workflows map[string]*models.Workflow
	updates   int
}

func newMockWorkflowRepo() *mockWorkflowRepo {
	return &mockWorkflowRepo{workflows: make(map[string]*models.Workflow)}
}

func (m *mockWorkflowRepo) Create(ctx context.Context, wf *models.Workflow) error {
	if wf.ID == "" {
		wf.ID = ulid.New()
	}
	wf.CreatedAt = time.Now()
	wf.UpdatedAt = wf.CreatedAt
	stored := *wf
	m.workflows[wf.ID] = &stored
	return nil
}

func (m *mockWorkflowRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id string) (*models.Workflow, error) {
	wf, ok := m.workflows[id]
	if !ok || wf.TenantID != tenantID {
		return nil, nil
	}
	out := *wf
	return &out, nil
}

func (m *mockWorkflowRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Workflow, error) {
	var result []*models.Workflow
	for _, wf := range m.workflows {
		if wf.TenantID == tenantID {
			out := *wf
			result = append(result, &out)
		}
	}
	return result, nil
}

func (m *mockWorkflowRepo) Update(ctx context.Context, wf *models.Workflow) error {
	m.updates++
	wf.UpdatedAt = time.Now()
	stored := *wf
	m.workflows[wf.ID] = &stored
	return nil
}

func (m *mockWorkflowRepo) Delete(ctx context.Context, tenantID uuid.UUID, id string) error {
	if wf, ok := m.workflows[id]; ok && wf.TenantID == tenantID {
		delete(m.workflows, id)
	}
	return nil
}

func newTenant(plan models.Plan) *models.Tenant {
	return &models.Tenant{
		ID:   uuid.New(),
		Name: "Peluquería Lucía",
		Slug: "peluqueria-lucia",
		Plan: plan,
	}
}
