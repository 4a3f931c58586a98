package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/workflow"
)

type workflowFixture struct {
	svc    WorkflowService
	tenant *models.Tenant
	repo   *mockWorkflowRepo
}

func newWorkflowFixture(plan models.Plan) *workflowFixture {
	tenant := newTenant(plan)
	tenants := newMockTenantRepo(tenant)
	repo := newMockWorkflowRepo()
	ent := NewEntitlementService(tenants, newMockUsageRepo(), nil)
	return &workflowFixture{
		svc:    NewWorkflowService(repo, ent, nil),
		tenant: tenant,
		repo:   repo,
	}
}

func (f *workflowFixture) seed(t *testing.T, steps, metadata string) *models.Workflow {
	t.Helper()
	wf := &models.Workflow{TenantID: f.tenant.ID, Name: "Reservas", Steps: steps, Metadata: metadata}
	require.NoError(t, f.repo.Create(context.Background(), wf))
	return wf
}

func TestWorkflowService_Create(t *testing.T) {
	f := newWorkflowFixture(models.PlanLite)

	wf, err := f.svc.Create(context.Background(), f.tenant.ID, "  Agenda  ")
	require.NoError(t, err)
	assert.Equal(t, "Agenda", wf.Name)
	assert.NotEmpty(t, wf.ID)

	g, err := f.svc.GetGraph(context.Background(), f.tenant.ID, wf.ID)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, workflow.StartStepID, g.Nodes[0].ID)
	assert.Equal(t, workflow.NodeTypeDynamicOptions, g.Nodes[0].Type)
	assert.Equal(t, workflow.Position{X: 250, Y: 50}, g.Nodes[0].Position)
	assert.Empty(t, g.Edges)
}

func TestWorkflowService_Create_Validation(t *testing.T) {
	f := newWorkflowFixture(models.PlanLite)

	for _, name := range []string{"", "   ", string(make([]byte, 256))} {
		_, err := f.svc.Create(context.Background(), f.tenant.ID, name)
		require.Error(t, err)
		assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)
	}
	assert.Empty(t, f.repo.workflows)
}

func TestWorkflowService_TenantIsolation(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t, `{}`, `{}`)
	other := uuid.New()

	_, err := f.svc.Get(context.Background(), other, wf.ID)
	assert.Equal(t, http.StatusNotFound, apierrors.AsAPIError(err).StatusCode)

	_, err = f.svc.GetGraph(context.Background(), other, wf.ID)
	assert.Equal(t, http.StatusNotFound, apierrors.AsAPIError(err).StatusCode)

	err = f.svc.Delete(context.Background(), other, wf.ID)
	assert.Equal(t, http.StatusNotFound, apierrors.AsAPIError(err).StatusCode)
	assert.Contains(t, f.repo.workflows, wf.ID)

	list, err := f.svc.List(context.Background(), other)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestWorkflowService_Delete(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t, `{}`, `{}`)

	require.NoError(t, f.svc.Delete(context.Background(), f.tenant.ID, wf.ID))
	assert.NotContains(t, f.repo.workflows, wf.ID)
}

func TestWorkflowService_SavedPositionsSurviveLoadAndSave(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t,
		`{"start":{"type":"MESSAGE","content":{"text":"Hola"},"next":"bye"},"bye":{"type":"MESSAGE"}}`,
		`{"positions":{"start":{"x":7,"y":9},"bye":{"x":640,"y":12}},"zoom":0.8}`,
	)
	ctx := context.Background()

	g, err := f.svc.GetGraph(ctx, f.tenant.ID, wf.ID)
	require.NoError(t, err)
	start, ok := g.Node("start")
	require.True(t, ok)
	assert.Equal(t, workflow.Position{X: 7, Y: 9}, start.Position)
	bye, _ := g.Node("bye")
	assert.Equal(t, workflow.Position{X: 640, Y: 12}, bye.Position)

	_, err = f.svc.SaveGraph(ctx, f.tenant.ID, wf.ID, *g)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"positions":{"start":{"x":7,"y":9},"bye":{"x":640,"y":12}},"zoom":0.8}`,
		f.repo.workflows[wf.ID].Metadata)

	applied, err := f.svc.ApplyCommands(ctx, f.tenant.ID, wf.ID, nil, nil)
	require.NoError(t, err)
	start, _ = applied.Node("start")
	assert.Equal(t, workflow.Position{X: 7, Y: 9}, start.Position)
}

func TestWorkflowService_SaveGraph_MovesAndKeepsContent(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t,
		`{"start":{"stepId":"start","type":"MESSAGE","content":{"text":"Hola","channel":"wa"},"next":"bye","retries":2},"bye":{"type":"MESSAGE","content":{"text":"Chao"}}}`,
		`{"positions":{"start":{"x":0,"y":0}},"zoom":1.5}`,
	)
	ctx := context.Background()

	g, err := f.svc.GetGraph(ctx, f.tenant.ID, wf.ID)
	require.NoError(t, err)
	moved, err := g.Apply(workflow.MoveNode{ID: "bye", Position: workflow.Position{X: 400, Y: 300}})
	require.NoError(t, err)

	res, err := f.svc.SaveGraph(ctx, f.tenant.ID, wf.ID, moved)
	require.NoError(t, err)
	assert.Empty(t, res.Dangling)
	assert.Nil(t, res.Warnings())

	stored := f.repo.workflows[wf.ID]
	var steps map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(stored.Steps), &steps))
	assert.Equal(t, "bye", steps["start"]["next"])
	assert.Equal(t, float64(2), steps["start"]["retries"])
	assert.Equal(t, "wa", steps["start"]["content"].(map[string]any)["channel"])

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(stored.Metadata), &meta))
	assert.Equal(t, 1.5, meta["zoom"])
	positions := meta["positions"].(map[string]any)
	assert.Equal(t, map[string]any{"x": float64(400), "y": float64(300)}, positions["bye"])
}

func TestWorkflowService_SaveGraph_ReportsDanglingTransitions(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t,
		`{"start":{"type":"DYNAMIC_OPTIONS","content":{"options_mapping":{"a":{"next":"one"},"b":{"next":"gone"}}}},"one":{"type":"MESSAGE","next":"missing"}}`,
		`{}`,
	)
	ctx := context.Background()

	g, err := f.svc.GetGraph(ctx, f.tenant.ID, wf.ID)
	require.NoError(t, err)

	res, err := f.svc.SaveGraph(ctx, f.tenant.ID, wf.ID, *g)
	require.NoError(t, err)
	require.Len(t, res.Dangling, 2)
	assert.Equal(t, workflow.DanglingTransition{StepID: "start", Option: "b", Target: "gone"}, res.Dangling[0])
	assert.Equal(t, workflow.DanglingTransition{StepID: "one", Target: "missing"}, res.Dangling[1])
	assert.Len(t, res.Warnings(), 2)
	assert.Equal(t, 1, f.repo.updates, "dangling transitions do not block the save")
}

func TestWorkflowService_SaveGraph_RemovedNodeLeavesDanglingPointer(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t, `{"start":{"type":"MESSAGE","next":"bye"},"bye":{"type":"MESSAGE"}}`, `{}`)
	ctx := context.Background()

	g, err := f.svc.GetGraph(ctx, f.tenant.ID, wf.ID)
	require.NoError(t, err)
	trimmed, err := g.Apply(workflow.RemoveNode{ID: "bye"})
	require.NoError(t, err)

	res, err := f.svc.SaveGraph(ctx, f.tenant.ID, wf.ID, trimmed)
	require.NoError(t, err)
	assert.Equal(t, []workflow.DanglingTransition{{StepID: "start", Target: "bye"}}, res.Dangling)
	assert.Len(t, res.Graph.Nodes, 1)
}

func TestWorkflowService_SaveGraph_RejectsInvalidGraph(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t, `{}`, `{}`)

	g := workflow.Graph{Nodes: []workflow.Node{
		{ID: "a", Type: workflow.NodeTypeMessage},
		{ID: "a", Type: workflow.NodeTypeMessage},
	}}
	_, err := f.svc.SaveGraph(context.Background(), f.tenant.ID, wf.ID, g)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierrors.AsAPIError(err).StatusCode)
	assert.Zero(t, f.repo.updates)
}

func TestWorkflowService_SaveGraph_ToolStepNeedsAI(t *testing.T) {
	addTool := workflow.AddNode{Node: workflow.Node{ID: "lookup", Type: workflow.NodeTypeTool}}

	t.Run("pro is refused", func(t *testing.T) {
		f := newWorkflowFixture(models.PlanPro)
		wf := f.seed(t, `{"start":{"type":"MESSAGE"}}`, `{}`)

		g, err := f.svc.ApplyCommands(context.Background(), f.tenant.ID, wf.ID, nil, []workflow.Command{addTool})
		require.NoError(t, err)

		_, err = f.svc.SaveGraph(context.Background(), f.tenant.ID, wf.ID, *g)
		apiErr := apierrors.AsAPIError(err)
		assert.Equal(t, "upgrade_required", apiErr.Code)
		assert.Zero(t, f.repo.updates)
	})

	t.Run("business is allowed", func(t *testing.T) {
		f := newWorkflowFixture(models.PlanBusiness)
		wf := f.seed(t, `{"start":{"type":"MESSAGE"}}`, `{}`)

		g, err := f.svc.ApplyCommands(context.Background(), f.tenant.ID, wf.ID, nil, []workflow.Command{addTool})
		require.NoError(t, err)

		res, err := f.svc.SaveGraph(context.Background(), f.tenant.ID, wf.ID, *g)
		require.NoError(t, err)
		node, ok := res.Graph.Node("lookup")
		require.True(t, ok)
		assert.Equal(t, workflow.NodeTypeTool, node.Type)
	})

	t.Run("existing tool steps survive a downgrade", func(t *testing.T) {
		f := newWorkflowFixture(models.PlanLite)
		wf := f.seed(t, `{"start":{"type":"MESSAGE"},"lookup":{"type":"TOOL"}}`, `{}`)

		g, err := f.svc.GetGraph(context.Background(), f.tenant.ID, wf.ID)
		require.NoError(t, err)
		_, err = f.svc.SaveGraph(context.Background(), f.tenant.ID, wf.ID, *g)
		assert.NoError(t, err)
	})
}

func TestWorkflowService_ApplyCommands_DoesNotPersist(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t, `{"start":{"type":"MESSAGE"}}`, `{}`)
	before := f.repo.workflows[wf.ID].Steps

	g, err := f.svc.ApplyCommands(context.Background(), f.tenant.ID, wf.ID, nil, []workflow.Command{
		workflow.AddNode{Node: workflow.Node{ID: "n1"}},
		workflow.AddEdge{Edge: workflow.Edge{Source: "start", Target: "n1"}},
	})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
	assert.Zero(t, f.repo.updates)
	assert.Equal(t, before, f.repo.workflows[wf.ID].Steps)
}

func TestWorkflowService_ApplyCommands_FailureIsBadRequest(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	base := &workflow.Graph{}

	_, err := f.svc.ApplyCommands(context.Background(), f.tenant.ID, "ignored", base, []workflow.Command{
		workflow.MoveNode{ID: "ghost"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierrors.AsAPIError(err).StatusCode)
}

func TestWorkflowService_ImportSteps(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t, `{"start":{"type":"MESSAGE"}}`, `{"positions":{"start":{"x":10,"y":20}}}`)
	ctx := context.Background()

	res, err := f.svc.ImportSteps(ctx, f.tenant.ID, wf.ID, []byte(
		`{"start":{"type":"QUESTION","content":{"text":"¿Nombre?"},"next":"done"},"done":{"type":"MESSAGE"}}`,
	))
	require.NoError(t, err)
	assert.Empty(t, res.Dangling)

	start, ok := res.Graph.Node("start")
	require.True(t, ok)
	assert.Equal(t, workflow.NodeTypeDecision, start.Type)
	assert.Equal(t, workflow.Position{X: 10, Y: 20}, start.Position)

	_, ok = res.Graph.Node("done")
	assert.True(t, ok)
}

func TestWorkflowService_ImportSteps_Invalid(t *testing.T) {
	f := newWorkflowFixture(models.PlanPro)
	wf := f.seed(t, `{}`, `{}`)

	_, err := f.svc.ImportSteps(context.Background(), f.tenant.ID, wf.ID, []byte(`{"start":{"type":"LOOP"}}`))
	require.Error(t, err)
	assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)
	assert.Zero(t, f.repo.updates)
}

func TestWorkflowService_ImportSteps_ToolNeedsAI(t *testing.T) {
	f := newWorkflowFixture(models.PlanLite)
	wf := f.seed(t, `{}`, `{}`)

	_, err := f.svc.ImportSteps(context.Background(), f.tenant.ID, wf.ID, []byte(`{"start":{"type":"TOOL"}}`))
	assert.Equal(t, "upgrade_required", apierrors.AsAPIError(err).Code)
}
