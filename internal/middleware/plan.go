package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/response"
)

// FeatureChecker decides whether a tenant's plan reaches a tier.
type FeatureChecker interface {
	CheckFeature(ctx context.Context, tenantID uuid.UUID, required models.Plan, mode entitlement.GuardMode) (*entitlement.Decision, error)
}

// RequirePlan returns a middleware that answers 402 upgrade_required when
// the caller's tenant is below the required tier. It must run after Auth.
func RequirePlan(checker FeatureChecker, required models.Plan) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := GetTenantID(r.Context())
			if !ok {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			decision, err := checker.CheckFeature(r.Context(), tenantID, required, entitlement.GuardModeBlock)
			if err != nil {
				response.Error(w, err)
				return
			}
			if !decision.Allowed {
				current := decision.Current
				if !models.ValidPlan(current) {
					current = models.PlanLite
				}
				response.UpgradeRequired(w, current, decision.UpgradeTo)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
