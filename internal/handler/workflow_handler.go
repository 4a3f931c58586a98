package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/AIX-Clever/chat-booking-admin/internal/middleware"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/response"
	"github.com/AIX-Clever/chat-booking-admin/internal/service"
	"github.com/AIX-Clever/chat-booking-admin/internal/workflow"
)

// WorkflowHandler handles workflow CRUD and the graph editor endpoints.
type WorkflowHandler struct {
	workflowService service.WorkflowService
	features        middleware.FeatureChecker
	validate        *validator.Validate
}

// NewWorkflowHandler creates a new workflow handler.
// Routes that need AI are gated by features.
func NewWorkflowHandler(workflowService service.WorkflowService, features middleware.FeatureChecker) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
		features:        features,
		validate:        newValidator(),
	}
}

// Routes returns a chi router with workflow routes.
func (h *WorkflowHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)

	// Editor
	r.Get("/{id}/graph", h.GetGraph)
	r.Put("/{id}/graph", h.SaveGraph)
	r.Post("/{id}/graph/commands", h.ApplyCommands)
	r.Put("/{id}/steps", h.ImportSteps)

	// AI
	r.With(middleware.RequirePlan(h.features, models.LowestPlanWithAI())).
		Get("/{id}/tools", h.Tools)

	return r
}

// CreateWorkflowRequest is the HTTP request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Create handles POST /v1/workflows
func (h *WorkflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req CreateWorkflowRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	wf, err := h.workflowService.Create(r.Context(), tenantID, req.Name)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, wf)
}

// List handles GET /v1/workflows
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	workflows, err := h.workflowService.List(r.Context(), tenantID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, workflows, &response.Meta{Total: int64(len(workflows))})
}

// Get handles GET /v1/workflows/{id}
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	wf, err := h.workflowService.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, wf)
}

// Delete handles DELETE /v1/workflows/{id}
func (h *WorkflowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := h.workflowService.Delete(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

// GetGraph handles GET /v1/workflows/{id}/graph
func (h *WorkflowHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	g, err := h.workflowService.GetGraph(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, g)
}

// Tools handles GET /v1/workflows/{id}/tools and lists the workflow's tool
// steps as graph nodes.
func (h *WorkflowHandler) Tools(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	g, err := h.workflowService.GetGraph(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}

	tools := g.NodesOfType(workflow.NodeTypeTool)
	response.JSONWithMeta(w, http.StatusOK, tools, &response.Meta{Total: int64(len(tools))})
}

// SaveGraph handles PUT /v1/workflows/{id}/graph
func (h *WorkflowHandler) SaveGraph(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var g workflow.Graph
	if err := json.Unmarshal(body, &g); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid graph"))
		return
	}

	result, err := h.workflowService.SaveGraph(r.Context(), tenantID, chi.URLParam(r, "id"), g)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OKWithWarnings(w, result, result.Warnings())
}

// ApplyCommandsRequest carries editor commands and an optional base graph.
// Without a graph the commands apply to the stored workflow.
type ApplyCommandsRequest struct {
	Graph    *workflow.Graph `json:"graph,omitempty"`
	Commands json.RawMessage `json:"commands"`
}

// ApplyCommands handles POST /v1/workflows/{id}/graph/commands
func (h *WorkflowHandler) ApplyCommands(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req ApplyCommandsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if len(req.Commands) == 0 {
		response.Error(w, apierrors.NewValidationError("commands", "commands is required"))
		return
	}

	cmds, err := workflow.DecodeCommands(req.Commands)
	if err != nil {
		response.Error(w, apierrors.NewValidationError("commands", err.Error()))
		return
	}

	g, err := h.workflowService.ApplyCommands(r.Context(), tenantID, chi.URLParam(r, "id"), req.Graph, cmds)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, g)
}

// ImportSteps handles PUT /v1/workflows/{id}/steps
func (h *WorkflowHandler) ImportSteps(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	result, err := h.workflowService.ImportSteps(r.Context(), tenantID, chi.URLParam(r, "id"), body)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OKWithWarnings(w, result, result.Warnings())
}
