package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/service"
	"github.com/AIX-Clever/chat-booking-admin/internal/workflow"
)

const testWorkflowID = "01J9ZQ3K8V4X2M7N5P6R8T0W1Y"

func testWorkflow(tenantID uuid.UUID) *models.Workflow {
	return &models.Workflow{
		ID:        testWorkflowID,
		TenantID:  tenantID,
		Name:      "Reservas",
		Steps:     `{"start":{"stepId":"start","type":"MESSAGE","content":{"text":"Hola"}}}`,
		Metadata:  `{}`,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func workflowRouter(svc *mockWorkflowService, tenantID uuid.UUID) http.Handler {
	return workflowRouterOnPlan(svc, tenantID, models.PlanBusiness)
}

func workflowRouterOnPlan(svc *mockWorkflowService, tenantID uuid.UUID, plan models.Plan) http.Handler {
	features := &mockEntitlementService{
		checkFeatureFunc: func(ctx context.Context, id uuid.UUID, required models.Plan, mode entitlement.GuardMode) (*entitlement.Decision, error) {
			d := entitlement.Check(plan, required, mode)
			return &d, nil
		},
	}
	return mount("/v1/workflows", NewWorkflowHandler(svc, features).Routes(), tenantID)
}

func TestWorkflowHandler_Create(t *testing.T) {
	tenantID := uuid.New()
	svc := &mockWorkflowService{
		createFunc: func(ctx context.Context, id uuid.UUID, name string) (*models.Workflow, error) {
			assert.Equal(t, tenantID, id)
			wf := testWorkflow(id)
			wf.Name = name
			return wf, nil
		},
	}
	h := workflowRouter(svc, tenantID)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{name: "valid", body: `{"name":"Reservas"}`, wantStatus: http.StatusCreated},
		{name: "missing name", body: `{}`, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "malformed", body: `{"name":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/v1/workflows", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)

			env := decodeEnvelope(t, rec)
			if tt.wantField != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, "validation_error", env.Error.Code)
				assert.Contains(t, env.Error.Details, tt.wantField)
			}
			if tt.wantStatus == http.StatusCreated {
				var wf models.Workflow
				require.NoError(t, json.Unmarshal(env.Data, &wf))
				assert.Equal(t, "Reservas", wf.Name)
				assert.Equal(t, testWorkflowID, wf.ID)
			}
		})
	}
}

func TestWorkflowHandler_List(t *testing.T) {
	tenantID := uuid.New()
	svc := &mockWorkflowService{
		listFunc: func(ctx context.Context, id uuid.UUID) ([]*models.Workflow, error) {
			return []*models.Workflow{testWorkflow(id), testWorkflow(id)}, nil
		},
	}

	rec := do(workflowRouter(svc, tenantID), http.MethodGet, "/v1/workflows", "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)
}

func TestWorkflowHandler_GetAndDelete(t *testing.T) {
	tenantID := uuid.New()
	svc := &mockWorkflowService{
		getFunc: func(ctx context.Context, id uuid.UUID, wfID string) (*models.Workflow, error) {
			if wfID != testWorkflowID {
				return nil, apierrors.NewNotFoundError("Workflow")
			}
			return testWorkflow(id), nil
		},
		deleteFunc: func(ctx context.Context, id uuid.UUID, wfID string) error {
			if wfID != testWorkflowID {
				return apierrors.NewNotFoundError("Workflow")
			}
			return nil
		},
	}
	h := workflowRouter(svc, tenantID)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/v1/workflows/"+testWorkflowID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/v1/workflows/missing", "").Code)
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/v1/workflows/"+testWorkflowID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/v1/workflows/missing", "").Code)
}

func TestWorkflowHandler_GetGraph(t *testing.T) {
	tenantID := uuid.New()
	svc := &mockWorkflowService{
		getGraphFunc: func(ctx context.Context, id uuid.UUID, wfID string) (*workflow.Graph, error) {
			wf := testWorkflow(id)
			g := workflow.DecodeStored([]byte(wf.Steps), []byte(wf.Metadata))
			return &g, nil
		},
	}

	rec := do(workflowRouter(svc, tenantID), http.MethodGet, "/v1/workflows/"+testWorkflowID+"/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var g struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &g))
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "start", g.Nodes[0]["id"])
	assert.NotNil(t, g.Edges)
}

func TestWorkflowHandler_Tools(t *testing.T) {
	tenantID := uuid.New()
	calls := 0
	svc := &mockWorkflowService{
		getGraphFunc: func(ctx context.Context, id uuid.UUID, wfID string) (*workflow.Graph, error) {
			calls++
			steps := `{"start":{"type":"MESSAGE","next":"book"},"book":{"type":"TOOL","content":{"text":"Booking"}}}`
			g := workflow.Decode([]byte(steps), nil)
			return &g, nil
		},
	}

	rec := do(workflowRouterOnPlan(svc, tenantID, models.PlanBusiness), http.MethodGet, "/v1/workflows/"+testWorkflowID+"/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)

	var nodes []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "book", nodes[0]["id"])
	assert.Equal(t, "tool", nodes[0]["type"])
	assert.Equal(t, 1, calls)
}

func TestWorkflowHandler_ToolsNeedAIPlan(t *testing.T) {
	svc := &mockWorkflowService{
		getGraphFunc: func(ctx context.Context, id uuid.UUID, wfID string) (*workflow.Graph, error) {
			t.Fatal("graph must not load below the AI tier")
			return nil, nil
		},
	}

	rec := do(workflowRouterOnPlan(svc, uuid.New(), models.PlanPro), http.MethodGet, "/v1/workflows/"+testWorkflowID+"/tools", "")
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "upgrade_required", env.Error.Code)
	assert.Equal(t, map[string]any{"current_plan": "PRO", "required_plan": "BUSINESS"}, env.Error.Details)

	rec = do(workflowRouterOnPlan(svc, uuid.Nil, models.PlanBusiness), http.MethodGet, "/v1/workflows/"+testWorkflowID+"/tools", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkflowHandler_SaveGraph(t *testing.T) {
	tenantID := uuid.New()
	var saved workflow.Graph
	svc := &mockWorkflowService{
		saveGraphFunc: func(ctx context.Context, id uuid.UUID, wfID string, g workflow.Graph) (*service.SaveResult, error) {
			saved = g
			return &service.SaveResult{
				Workflow: testWorkflow(id),
				Graph:    g,
				Dangling: []workflow.DanglingTransition{{StepID: "start", Target: "ghost"}},
			}, nil
		},
	}
	h := workflowRouter(svc, tenantID)

	body := `{"nodes":[{"id":"start","type":"message","position":{"x":10,"y":20},"data":{"message":"Hola","zoom":2}}],"edges":[]}`
	rec := do(h, http.MethodPut, "/v1/workflows/"+testWorkflowID+"/graph", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, saved.Nodes, 1)
	assert.Equal(t, workflow.Position{X: 10, Y: 20}, saved.Nodes[0].Position)
	msg, ok := saved.Nodes[0].Data.String("message")
	require.True(t, ok)
	assert.Equal(t, "Hola", msg)
	assert.True(t, saved.Nodes[0].Data.Has("zoom"))

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Meta)
	require.Len(t, env.Meta.Warnings, 1)
	assert.Contains(t, env.Meta.Warnings[0], "ghost")

	rec = do(h, http.MethodPut, "/v1/workflows/"+testWorkflowID+"/graph", `{"nodes":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkflowHandler_SaveGraphUpgradeRequired(t *testing.T) {
	svc := &mockWorkflowService{
		saveGraphFunc: func(ctx context.Context, id uuid.UUID, wfID string, g workflow.Graph) (*service.SaveResult, error) {
			return nil, apierrors.NewUpgradeRequiredError(models.PlanPro, models.PlanBusiness)
		},
	}

	rec := do(workflowRouter(svc, uuid.New()), http.MethodPut, "/v1/workflows/"+testWorkflowID+"/graph", `{"nodes":[],"edges":[]}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "upgrade_required", decodeEnvelope(t, rec).Error.Code)
}

func TestWorkflowHandler_ApplyCommands(t *testing.T) {
	var gotBase *workflow.Graph
	var gotCmds []workflow.Command
	svc := &mockWorkflowService{
		applyCommandsFunc: func(ctx context.Context, id uuid.UUID, wfID string, base *workflow.Graph, cmds []workflow.Command) (*workflow.Graph, error) {
			gotBase, gotCmds = base, cmds
			g := workflow.Graph{}
			if base != nil {
				g = *base
			}
			out, err := g.Apply(cmds...)
			if err != nil {
				return nil, apierrors.ErrBadRequest.WithMessage(err.Error())
			}
			return &out, nil
		},
	}
	h := workflowRouter(svc, uuid.New())
	path := "/v1/workflows/" + testWorkflowID + "/graph/commands"

	rec := do(h, http.MethodPost, path, `{"commands":[{"kind":"add_node","node":{"id":"a","type":"message","position":{"x":0,"y":0}}}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, gotBase)
	assert.Len(t, gotCmds, 1)

	rec = do(h, http.MethodPost, path, `{"graph":{"nodes":[{"id":"a","type":"message","position":{"x":0,"y":0}}],"edges":[]},"commands":[{"kind":"remove_node","id":"a"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, gotBase)
	assert.Len(t, gotBase.Nodes, 1)

	var g workflow.Graph
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &g))
	assert.Empty(t, g.Nodes)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing commands", body: `{}`},
		{name: "unknown kind", body: `{"commands":[{"kind":"explode"}]}`},
		{name: "not an array", body: `{"commands":{"kind":"remove_node"}}`},
		{name: "malformed", body: `{"commands":[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, path, tt.body).Code)
		})
	}
}

func TestWorkflowHandler_ImportSteps(t *testing.T) {
	var gotRaw []byte
	svc := &mockWorkflowService{
		importStepsFunc: func(ctx context.Context, id uuid.UUID, wfID string, raw []byte) (*service.SaveResult, error) {
			gotRaw = raw
			if err := workflow.ValidateSteps(raw); err != nil {
				return nil, apierrors.NewValidationError("steps", err.Error())
			}
			return &service.SaveResult{Workflow: testWorkflow(id)}, nil
		},
	}
	h := workflowRouter(svc, uuid.New())
	path := "/v1/workflows/" + testWorkflowID + "/steps"

	body := `{"start":{"stepId":"start","type":"MESSAGE","content":{"text":"Hola"}}}`
	rec := do(h, http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, body, string(gotRaw))
	assert.Nil(t, decodeEnvelope(t, rec).Meta)

	rec = do(h, http.MethodPut, path, `{"start":{"type":"SPEECH"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
