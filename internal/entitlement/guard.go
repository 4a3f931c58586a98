package entitlement

import "github.com/AIX-Clever/chat-booking-admin/internal/models"

// GuardMode tells the caller how to present a denied feature.
type GuardMode string

const (
	// GuardModeBlock replaces the gated content with an upgrade prompt.
	GuardModeBlock GuardMode = "block"
	// GuardModeOverlay renders the content blurred behind an upgrade prompt.
	GuardModeOverlay GuardMode = "overlay"
)

// ParseGuardMode returns the mode named by s, defaulting to block.
func ParseGuardMode(s string) GuardMode {
	if GuardMode(s) == GuardModeOverlay {
		return GuardModeOverlay
	}
	return GuardModeBlock
}

// Decision is the outcome of a feature gate check.
type Decision struct {
	Allowed   bool        `json:"allowed" yaml:"allowed"`
	Current   models.Plan `json:"current" yaml:"current"`
	Required  models.Plan `json:"required" yaml:"required"`
	Mode      GuardMode   `json:"mode" yaml:"mode"`
	UpgradeTo models.Plan `json:"upgrade_to,omitempty" yaml:"upgrade_to,omitempty"`
}

// Check gates a feature that needs at least the required tier.
func Check(plan, required models.Plan, mode GuardMode) Decision {
	d := Decision{
		Allowed:  models.PlanLevel(plan) >= models.PlanLevel(required),
		Current:  plan,
		Required: required,
		Mode:     ParseGuardMode(string(mode)),
	}
	if !d.Allowed {
		d.UpgradeTo = required
	}
	return d
}

// SuggestUpgrade returns the tier to offer when r shows high usage.
// ok is false when usage is normal or the tenant is already on the top tier.
func SuggestUpgrade(r Result) (models.Plan, bool) {
	if !r.IsUsageHigh {
		return "", false
	}
	return models.NextPlan(r.Plan)
}
