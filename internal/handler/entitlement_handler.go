package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/response"
	"github.com/AIX-Clever/chat-booking-admin/internal/service"
)

// EntitlementHandler serves the tenant's plan limits and feature gates.
type EntitlementHandler struct {
	entitlementService service.EntitlementService
}

// NewEntitlementHandler creates a new entitlement handler.
func NewEntitlementHandler(entitlementService service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlementService: entitlementService}
}

// Routes returns a chi router with entitlement routes.
func (h *EntitlementHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Get("/guard", h.Guard)
	r.Get("/usage", h.Usage)
	r.Get("/check", h.CheckAction)
	return r
}

// Get handles GET /v1/entitlements
func (h *EntitlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ents, err := h.entitlementService.GetEntitlements(r.Context(), tenantID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, ents)
}

// Guard handles GET /v1/entitlements/guard?required=PRO&mode=overlay
func (h *EntitlementHandler) Guard(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	required := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("required")))
	if required == "" {
		response.Error(w, apierrors.NewValidationError("required", "required is required"))
		return
	}
	mode := entitlement.ParseGuardMode(r.URL.Query().Get("mode"))

	decision, err := h.entitlementService.CheckFeature(r.Context(), tenantID, models.Plan(required), mode)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, decision)
}

// Actions accepted by GET /v1/entitlements/check.
const (
	ActionInviteUser     = "invite_user"
	ActionCreateProvider = "create_provider"
	ActionUseAI          = "use_ai"
)

// ActionCheck is returned when the tenant may perform an action.
type ActionCheck struct {
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
}

// CheckAction handles GET /v1/entitlements/check?action=invite_user.
// A denied action answers 402 with the limit or tier that blocks it.
func (h *EntitlementHandler) CheckAction(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	action := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("action")))
	var ensure func(context.Context, uuid.UUID) error
	switch action {
	case ActionInviteUser:
		ensure = h.entitlementService.EnsureCanInviteUser
	case ActionCreateProvider:
		ensure = h.entitlementService.EnsureCanCreateProvider
	case ActionUseAI:
		ensure = h.entitlementService.EnsureAI
	case "":
		response.Error(w, apierrors.NewValidationError("action", "action is required"))
		return
	default:
		response.Error(w, apierrors.NewValidationError("action", "action must be one of invite_user, create_provider, use_ai"))
		return
	}

	if err := ensure(r.Context(), tenantID); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, ActionCheck{Action: action, Allowed: true})
}

// Usage handles GET /v1/entitlements/usage?months=3
func (h *EntitlementHandler) Usage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	months := 1
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, apierrors.NewValidationError("months", "months must be an integer"))
			return
		}
		months = n
	}

	rows, err := h.entitlementService.UsageHistory(r.Context(), tenantID, months)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, rows, &response.Meta{Total: int64(len(rows))})
}
