package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/ulid"
)

// WorkflowRepository defines the interface for workflow data operations.
// Every lookup is scoped by tenant.
type WorkflowRepository interface {
	Create(ctx context.Context, wf *models.Workflow) error
	GetByID(ctx context.Context, tenantID uuid.UUID, id string) (*models.Workflow, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Workflow, error)
	// Update replaces steps and metadata wholesale. The last writer wins.
	Update(ctx context.Context, wf *models.Workflow) error
	Delete(ctx context.Context, tenantID uuid.UUID, id string) error
}

type workflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(pool *pgxpool.Pool) WorkflowRepository {
	return &workflowRepo{pool: pool}
}

// Create inserts a new workflow, assigning an id when none is set.
func (r *workflowRepo) Create(ctx context.Context, wf *models.Workflow) error {
	query := `
		INSERT INTO workflows (id, tenant_id, name, steps, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if wf.ID == "" {
		wf.ID = ulid.New()
	}

	return r.pool.QueryRow(ctx, query,
		wf.ID,
		wf.TenantID,
		wf.Name,
		wf.Steps,
		wf.Metadata,
	).Scan(&wf.CreatedAt, &wf.UpdatedAt)
}

// GetByID retrieves a workflow owned by the tenant.
func (r *workflowRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id string) (*models.Workflow, error) {
	query := `
		SELECT id, tenant_id, name, steps, metadata, created_at, updated_at
		FROM workflows WHERE tenant_id = $1 AND id = $2`

	var wf models.Workflow
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&wf.ID,
		&wf.TenantID,
		&wf.Name,
		&wf.Steps,
		&wf.Metadata,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

// ListByTenant lists a tenant's workflows, newest first. Step documents are
// not loaded.
func (r *workflowRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Workflow, error) {
	query := `
		SELECT id, tenant_id, name, created_at, updated_at
		FROM workflows WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		var wf models.Workflow
		if err := rows.Scan(&wf.ID, &wf.TenantID, &wf.Name, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
			return nil, err
		}
		workflows = append(workflows, &wf)
	}
	return workflows, rows.Err()
}

// Update writes the steps and metadata documents.
func (r *workflowRepo) Update(ctx context.Context, wf *models.Workflow) error {
	query := `
		UPDATE workflows SET steps = $3, metadata = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, wf.TenantID, wf.ID, wf.Steps, wf.Metadata).Scan(&wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

// Delete removes a workflow.
func (r *workflowRepo) Delete(ctx context.Context, tenantID uuid.UUID, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return err
}

// Compile-time check to ensure workflowRepo implements WorkflowRepository.
var _ WorkflowRepository = (*workflowRepo)(nil)
