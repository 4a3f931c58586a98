package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/AIX-Clever/chat-booking-admin/internal/metrics"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/repository"
	"github.com/AIX-Clever/chat-booking-admin/internal/workflow"
)

// WorkflowService manages stored workflows and their editor graphs.
type WorkflowService interface {
	Create(ctx context.Context, tenantID uuid.UUID, name string) (*models.Workflow, error)
	Get(ctx context.Context, tenantID uuid.UUID, id string) (*models.Workflow, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Workflow, error)
	Delete(ctx context.Context, tenantID uuid.UUID, id string) error

	// GetGraph decodes the stored documents into an editor graph.
	GetGraph(ctx context.Context, tenantID uuid.UUID, id string) (*workflow.Graph, error)

	// SaveGraph encodes g against the stored steps and persists both
	// documents wholesale.
	SaveGraph(ctx context.Context, tenantID uuid.UUID, id string, g workflow.Graph) (*SaveResult, error)

	// ApplyCommands applies editor commands to base, or to the stored graph
	// when base is nil. Nothing is persisted.
	ApplyCommands(ctx context.Context, tenantID uuid.UUID, id string, base *workflow.Graph, cmds []workflow.Command) (*workflow.Graph, error)

	// ImportSteps replaces the step map with a validated document.
	ImportSteps(ctx context.Context, tenantID uuid.UUID, id string, raw []byte) (*SaveResult, error)
}

// SaveResult is a persisted workflow, its graph and any transitions that
// point at missing steps.
type SaveResult struct {
	Workflow *models.Workflow             `json:"workflow"`
	Graph    workflow.Graph               `json:"graph"`
	Dangling []workflow.DanglingTransition `json:"dangling,omitempty"`
}

// Warnings renders the dangling transitions for the response envelope.
func (r *SaveResult) Warnings() []string {
	if len(r.Dangling) == 0 {
		return nil
	}
	out := make([]string, len(r.Dangling))
	for i, d := range r.Dangling {
		out[i] = "dangling transition " + d.String()
	}
	return out
}

const maxWorkflowNameLength = 255

type workflowService struct {
	workflowRepo repository.WorkflowRepository
	entitlements EntitlementService
	logger       *slog.Logger
}

// NewWorkflowService creates a new workflow service.
func NewWorkflowService(
	workflowRepo repository.WorkflowRepository,
	entitlements EntitlementService,
	logger *slog.Logger,
) WorkflowService {
	if logger == nil {
		logger = slog.Default()
	}
	return &workflowService{
		workflowRepo: workflowRepo,
		entitlements: entitlements,
		logger:       logger,
	}
}

// Create stores a workflow holding only the default start step.
func (s *workflowService) Create(ctx context.Context, tenantID uuid.UUID, name string) (*models.Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierrors.NewValidationError("name", "name is required")
	}
	if len(name) > maxWorkflowNameLength {
		return nil, apierrors.NewValidationError("name", "name must be at most 255 characters")
	}

	steps, err := json.Marshal(workflow.DefaultSteps())
	if err != nil {
		return nil, fmt.Errorf("encode default steps: %w", err)
	}
	metadata, err := json.Marshal(workflow.DefaultMetadata())
	if err != nil {
		return nil, fmt.Errorf("encode default metadata: %w", err)
	}

	wf := &models.Workflow{
		TenantID: tenantID,
		Name:     name,
		Steps:    string(steps),
		Metadata: string(metadata),
	}
	if err := s.workflowRepo.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	s.logger.Info("workflow created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("workflow_id", wf.ID),
	)
	return wf, nil
}

// Get retrieves a workflow owned by the tenant.
func (s *workflowService) Get(ctx context.Context, tenantID uuid.UUID, id string) (*models.Workflow, error) {
	wf, err := s.workflowRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	if wf == nil {
		return nil, apierrors.NewNotFoundError("Workflow")
	}
	return wf, nil
}

// List returns the tenant's workflows.
func (s *workflowService) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Workflow, error) {
	workflows, err := s.workflowRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return workflows, nil
}

// Delete removes a workflow.
func (s *workflowService) Delete(ctx context.Context, tenantID uuid.UUID, id string) error {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.workflowRepo.Delete(ctx, tenantID, id); err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	return nil
}

// GetGraph decodes the stored documents into an editor graph.
func (s *workflowService) GetGraph(ctx context.Context, tenantID uuid.UUID, id string) (*workflow.Graph, error) {
	wf, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	g := workflow.DecodeStored([]byte(wf.Steps), []byte(wf.Metadata))
	return &g, nil
}

// SaveGraph encodes g against the stored steps and persists both documents.
// Edges are not turned back into transitions; the transitions already in
// the stored steps are kept and any that dangle are reported.
func (s *workflowService) SaveGraph(ctx context.Context, tenantID uuid.UUID, id string, g workflow.Graph) (*SaveResult, error) {
	if err := g.ValidateNodes(); err != nil {
		metrics.RecordWorkflowSave(metrics.SaveRejected)
		return nil, apierrors.ErrBadRequest.WithMessage(err.Error())
	}

	wf, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	steps, metadata, err := workflow.EncodeJSON(g, []byte(wf.Steps), []byte(wf.Metadata))
	if err != nil {
		metrics.RecordWorkflowSave(metrics.SaveError)
		return nil, err
	}
	return s.persist(ctx, wf, steps, metadata)
}

// ApplyCommands applies editor commands without persisting.
func (s *workflowService) ApplyCommands(ctx context.Context, tenantID uuid.UUID, id string, base *workflow.Graph, cmds []workflow.Command) (*workflow.Graph, error) {
	if base == nil {
		stored, err := s.GetGraph(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		base = stored
	}

	g, err := base.Apply(cmds...)
	if err != nil {
		return nil, apierrors.ErrBadRequest.WithMessage(err.Error())
	}
	return &g, nil
}

// ImportSteps replaces the step map with a validated document. Node
// positions already stored are kept for steps that survive the import.
func (s *workflowService) ImportSteps(ctx context.Context, tenantID uuid.UUID, id string, raw []byte) (*SaveResult, error) {
	if err := workflow.ValidateSteps(raw); err != nil {
		metrics.RecordWorkflowSave(metrics.SaveRejected)
		if errors.Is(err, workflow.ErrInvalidSteps) {
			return nil, apierrors.NewValidationError("steps", err.Error())
		}
		return nil, err
	}

	wf, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	steps, err := json.Marshal(workflow.ParseSteps(raw))
	if err != nil {
		metrics.RecordWorkflowSave(metrics.SaveError)
		return nil, fmt.Errorf("encode steps: %w", err)
	}
	return s.persist(ctx, wf, steps, []byte(wf.Metadata))
}

func (s *workflowService) persist(ctx context.Context, wf *models.Workflow, steps, metadata []byte) (*SaveResult, error) {
	parsed := workflow.ParseSteps(steps)
	if introducesAI(workflow.ParseSteps([]byte(wf.Steps)), parsed) {
		if err := s.entitlements.EnsureAI(ctx, wf.TenantID); err != nil {
			metrics.RecordWorkflowSave(metrics.SaveRejected)
			return nil, err
		}
	}

	wf.Steps = string(steps)
	wf.Metadata = string(metadata)
	if err := s.workflowRepo.Update(ctx, wf); err != nil {
		metrics.RecordWorkflowSave(metrics.SaveError)
		return nil, fmt.Errorf("save workflow: %w", err)
	}

	dangling := workflow.DanglingTransitions(parsed)
	if len(dangling) > 0 {
		metrics.RecordWorkflowSave(metrics.SaveWarning)
		metrics.RecordDanglingTransitions(len(dangling))
		s.logger.Warn("workflow saved with dangling transitions",
			slog.String("tenant_id", wf.TenantID.String()),
			slog.String("workflow_id", wf.ID),
			slog.Int("count", len(dangling)),
		)
	} else {
		metrics.RecordWorkflowSave(metrics.SaveOK)
	}

	_, positions := workflow.ParseMetadata(metadata)
	return &SaveResult{
		Workflow: wf,
		Graph:    workflow.DecodeSteps(parsed, positions),
		Dangling: dangling,
	}, nil
}

// introducesAI reports whether after has a TOOL step that before did not.
// Tenants that downgraded can still edit flows that already use tools.
func introducesAI(before, after *workflow.Steps) bool {
	for _, id := range after.IDs() {
		step, _ := after.Get(id)
		if step.Type != workflow.StepTypeTool {
			continue
		}
		if old, ok := before.Get(id); !ok || old.Type != workflow.StepTypeTool {
			return true
		}
	}
	return false
}

// Compile-time check to ensure workflowService implements WorkflowService.
var _ WorkflowService = (*workflowService)(nil)
