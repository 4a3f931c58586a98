package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AIX-Clever/chat-booking-admin/internal/database"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
)

// Cache is the subset of the Redis wrapper the cached repository needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

var _ Cache = (*database.Redis)(nil)

type cachedTenantRepo struct {
	TenantRepository
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedTenantRepository wraps a TenantRepository with a read-through
// cache of GetByID. Every write drops the cached entry.
//
// Cache failures are logged and fall through to the underlying repository.
func NewCachedTenantRepository(next TenantRepository, cache Cache, ttl time.Duration, logger *slog.Logger) TenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedTenantRepo{
		TenantRepository: next,
		cache:            cache,
		ttl:              ttl,
		logger:           logger,
	}
}

func tenantCacheKey(id uuid.UUID) string {
	return "tenant:" + id.String()
}

func (r *cachedTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	key := tenantCacheKey(id)

	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var t models.Tenant
		if jsonErr := json.Unmarshal([]byte(raw), &t); jsonErr == nil {
			return &t, nil
		}
		r.logger.Warn("discarding corrupt tenant cache entry", slog.String("key", key))
	case !errors.Is(err, database.ErrCacheMiss):
		r.logger.Warn("tenant cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	t, err := r.TenantRepository.GetByID(ctx, id)
	if err != nil || t == nil {
		return t, err
	}

	if data, err := json.Marshal(t); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn("tenant cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return t, nil
}

func (r *cachedTenantRepo) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.Plan) error {
	if err := r.TenantRepository.UpdatePlan(ctx, id, plan); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedTenantRepo) UpdateStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	if err := r.TenantRepository.UpdateStripeCustomer(ctx, id, customerID); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedTenantRepo) UpdateStripeSubscription(ctx context.Context, id uuid.UUID, subscriptionID string) error {
	if err := r.TenantRepository.UpdateStripeSubscription(ctx, id, subscriptionID); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedTenantRepo) ClearStripeSubscription(ctx context.Context, id uuid.UUID) error {
	if err := r.TenantRepository.ClearStripeSubscription(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedTenantRepo) invalidate(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Delete(ctx, tenantCacheKey(id)); err != nil {
		r.logger.Warn("tenant cache invalidation failed",
			slog.String("tenant_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}

var _ TenantRepository = (*cachedTenantRepo)(nil)
