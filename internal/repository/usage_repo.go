// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
)

// UsageRepository reads the metered counters. Rows are written by the
// conversation engine; this service only reads them.
type UsageRepository interface {
	// ListByTenant lists the metered counters of every period that falls
	// inside [periodStart, periodEnd].
	ListByTenant(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) ([]*models.UsageMetric, error)

	// GetSnapshot returns the counters the entitlement resolver consumes.
	GetSnapshot(ctx context.Context, tenantID uuid.UUID) (*entitlement.Usage, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepository creates a new usage metric repository.
func NewUsageRepository(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

// PeriodStart returns the start of the monthly billing period containing t.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the last instant of the monthly billing period containing t.
func PeriodEnd(t time.Time) time.Time {
	return PeriodStart(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// ListByTenant lists all usage metrics for a tenant in a period.
func (r *usageRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) ([]*models.UsageMetric, error) {
	query := `
		SELECT id, tenant_id, metric, value, period_start, period_end, created_at, updated_at
		FROM usage_metrics
		WHERE tenant_id = $1 AND period_start >= $2 AND period_end <= $3
		ORDER BY period_start, metric`

	rows, err := r.pool.Query(ctx, query, tenantID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []*models.UsageMetric
	for rows.Next() {
		var m models.UsageMetric
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.Metric,
			&m.Value,
			&m.PeriodStart,
			&m.PeriodEnd,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

// GetSnapshot collects current-period messages and bookings plus the live
// seat and provider counts in a single round trip.
func (r *usageRepo) GetSnapshot(ctx context.Context, tenantID uuid.UUID) (*entitlement.Usage, error) {
	query := `
		SELECT
			COALESCE((SELECT value FROM usage_metrics
			          WHERE tenant_id = $1 AND metric = $2 AND period_start = $4), 0),
			COALESCE((SELECT value FROM usage_metrics
			          WHERE tenant_id = $1 AND metric = $3 AND period_start = $4), 0),
			(SELECT COUNT(*) FROM tenant_members WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM providers WHERE tenant_id = $1 AND active)`

	var messages, bookings, users, providers int64
	err := r.pool.QueryRow(ctx, query,
		tenantID,
		models.MetricTypeMessages,
		models.MetricTypeBookings,
		PeriodStart(time.Now()),
	).Scan(&messages, &bookings, &users, &providers)
	if err != nil {
		return nil, err
	}

	usage := &entitlement.Usage{
		Messages:  entitlement.Int64(messages),
		Bookings:  entitlement.Int64(bookings),
		Providers: entitlement.Int64(providers),
	}
	// A tenant without member rows still has its owner seat.
	if users > 0 {
		usage.Users = entitlement.Int64(users)
	}
	return usage, nil
}

// Compile-time check to ensure usageRepo implements UsageRepository.
var _ UsageRepository = (*usageRepo)(nil)
