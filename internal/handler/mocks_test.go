package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/middleware"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	"github.com/AIX-Clever/chat-booking-admin/internal/service"
	"github.com/AIX-Clever/chat-booking-admin/internal/workflow"
)

// mockEntitlementService is a mock implementation of EntitlementService for testing.
type mockEntitlementService struct {
	getEntitlementsFunc func(ctx context.Context, tenantID uuid.UUID) (*service.Entitlements, error)
	checkFeatureFunc    func(ctx context.Context, tenantID uuid.UUID, required models.Plan, mode entitlement.GuardMode) (*entitlement.Decision, error)
	usageHistoryFunc    func(ctx context.Context, tenantID uuid.UUID, months int) ([]*models.UsageMetric, error)
	ensureInviteFunc    func(ctx context.Context, tenantID uuid.UUID) error
	ensureProviderFunc  func(ctx context.Context, tenantID uuid.UUID) error
	ensureAIFunc        func(ctx context.Context, tenantID uuid.UUID) error
}

func (m *mockEntitlementService) GetEntitlements(ctx context.Context, tenantID uuid.UUID) (*service.Entitlements, error) {
	if m.getEntitlementsFunc != nil {
		return m.getEntitlementsFunc(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockEntitlementService) CheckFeature(ctx context.Context, tenantID uuid.UUID, required models.Plan, mode entitlement.GuardMode) (*entitlement.Decision, error) {
	if m.checkFeatureFunc != nil {
		return m.checkFeatureFunc(ctx, tenantID, required, mode)
	}
	return nil, nil
}

func (m *mockEntitlementService) EnsureCanInviteUser(ctx context.Context, tenantID uuid.UUID) error {
	if m.ensureInviteFunc != nil {
		return m.ensureInviteFunc(ctx, tenantID)
	}
	return nil
}

func (m *mockEntitlementService) EnsureCanCreateProvider(ctx context.Context, tenantID uuid.UUID) error {
	if m.ensureProviderFunc != nil {
		return m.ensureProviderFunc(ctx, tenantID)
	}
	return nil
}

func (m *mockEntitlementService) EnsureAI(ctx context.Context, tenantID uuid.UUID) error {
	if m.ensureAIFunc != nil {
		return m.ensureAIFunc(ctx, tenantID)
	}
	return nil
}

func (m *mockEntitlementService) UsageHistory(ctx context.Context, tenantID uuid.UUID, months int) ([]*models.UsageMetric, error) {
	if m.usageHistoryFunc != nil {
		return m.usageHistoryFunc(ctx, tenantID, months)
	}
	return []*models.UsageMetric{}, nil
}

// mockWorkflowService is a mock implementation of WorkflowService for testing.
type mockWorkflowService struct {
	createFunc        func(ctx context.Context, tenantID uuid.UUID, name string) (*models.Workflow, error)
	getFunc           func(ctx context.Context, tenantID uuid.UUID, id string) (*models.Workflow, error)
	listFunc          func(ctx context.Context, tenantID uuid.UUID) ([]*models.Workflow, error)
	deleteFunc        func(ctx context.Context, tenantID uuid.UUID, id string) error
	getGraphFunc      func(ctx context.Context, tenantID uuid.UUID, id string) (*workflow.Graph, error)
	saveGraphFunc     func(ctx context.Context, tenantID uuid.UUID, id string, g workflow.Graph) (*service.SaveResult, error)
	applyCommandsFunc func(ctx context.Context, tenantID uuid.UUID, id string, base *workflow.Graph, cmds []workflow.Command) (*workflow.Graph, error)
	importStepsFunc   func(ctx context.Context, tenantID uuid.UUID, id string, raw []byte) (*service.SaveResult, error)
}

func (m *mockWorkflowService) Create(ctx context.Context, tenantID uuid.UUID, name string) (*models.Workflow, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, tenantID, name)
	}
	return nil, nil
}

func (m *mockWorkflowService) Get(ctx context.Context, tenantID uuid.UUID, id string) (*models.Workflow, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, tenantID, id)
	}
	return nil, nil
}

func (m *mockWorkflowService) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Workflow, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, tenantID)
	}
	return []*models.Workflow{}, nil
}

func (m *mockWorkflowService) Delete(ctx context.Context, tenantID uuid.UUID, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, tenantID, id)
	}
	return nil
}

func (m *mockWorkflowService) GetGraph(ctx context.Context, tenantID uuid.UUID, id string) (*workflow.Graph, error) {
	if m.getGraphFunc != nil {
		return m.getGraphFunc(ctx, tenantID, id)
	}
	return &workflow.Graph{}, nil
}

func (m *mockWorkflowService) SaveGraph(ctx context.Context, tenantID uuid.UUID, id string, g workflow.Graph) (*service.SaveResult, error) {
	if m.saveGraphFunc != nil {
		return m.saveGraphFunc(ctx, tenantID, id, g)
	}
	return &service.SaveResult{}, nil
}

func (m *mockWorkflowService) ApplyCommands(ctx context.Context, tenantID uuid.UUID, id string, base *workflow.Graph, cmds []workflow.Command) (*workflow.Graph, error) {
	if m.applyCommandsFunc != nil {
		return m.applyCommandsFunc(ctx, tenantID, id, base, cmds)
	}
	return &workflow.Graph{}, nil
}

func (m *mockWorkflowService) ImportSteps(ctx context.Context, tenantID uuid.UUID, id string, raw []byte) (*service.SaveResult, error) {
	if m.importStepsFunc != nil {
		return m.importStepsFunc(ctx, tenantID, id, raw)
	}
	return &service.SaveResult{}, nil
}

// mockBillingService is a mock implementation of BillingService for testing.
type mockBillingService struct {
	createCheckoutSessionFunc func(ctx context.Context, tenantID uuid.UUID, plan models.Plan, returnURL string) (string, error)
	handleWebhookFunc         func(ctx context.Context, payload []byte, signature string) error
}

func (m *mockBillingService) CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, plan models.Plan, returnURL string) (string, error) {
	if m.createCheckoutSessionFunc != nil {
		return m.createCheckoutSessionFunc(ctx, tenantID, plan, returnURL)
	}
	return "", nil
}

func (m *mockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.handleWebhookFunc != nil {
		return m.handleWebhookFunc(ctx, payload, signature)
	}
	return nil
}

var (
	_ service.EntitlementService = (*mockEntitlementService)(nil)
	_ service.WorkflowService    = (*mockWorkflowService)(nil)
	_ service.BillingService     = (*mockBillingService)(nil)
)

// mount serves routes under prefix as tenantID. uuid.Nil means anonymous.
func mount(prefix string, routes http.Handler, tenantID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if tenantID != uuid.Nil {
				req = req.WithContext(middleware.WithIdentity(req.Context(), "user-1", tenantID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Mount(prefix, routes)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors the response wrapper written by internal/pkg/response.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64    `json:"total"`
		Warnings []string `json:"warnings"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
