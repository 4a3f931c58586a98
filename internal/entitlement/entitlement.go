// Package entitlement derives what a tenant may do from its plan tier and
// current usage. Everything here is a pure function of its inputs.
package entitlement

import "github.com/AIX-Clever/chat-booking-admin/internal/models"

// Usage holds optional counters for the current billing period.
// A nil field means the caller did not supply that counter.
type Usage struct {
	Messages  *int64 `json:"messages,omitempty"`
	Bookings  *int64 `json:"bookings,omitempty"`
	Users     *int64 `json:"users,omitempty"`
	Providers *int64 `json:"providers,omitempty"`
}

// Counts are the usage counters after defaults have been applied.
type Counts struct {
	Messages  int64 `json:"messages" yaml:"messages"`
	Bookings  int64 `json:"bookings" yaml:"bookings"`
	Users     int64 `json:"users" yaml:"users"`
	Providers int64 `json:"providers" yaml:"providers"`
}

// Result is the entitlement set for one (plan, usage) pair.
// AIEnabled and CanUseAI always hold the same value; both names are served
// to existing consumers.
type Result struct {
	Plan              models.Plan       `json:"plan" yaml:"plan"`
	AIEnabled         bool              `json:"ai_enabled" yaml:"ai_enabled"`
	CanUseAI          bool              `json:"can_use_ai" yaml:"can_use_ai"`
	CanInviteUser     bool              `json:"can_invite_user" yaml:"can_invite_user"`
	CanCreateProvider bool              `json:"can_create_provider" yaml:"can_create_provider"`
	IsUsageHigh       bool              `json:"is_usage_high" yaml:"is_usage_high"`
	Limits            models.PlanLimits `json:"limits" yaml:"limits"`
	Usage             Counts            `json:"usage" yaml:"usage"`
}

// Resolve computes the entitlements of plan given usage. Unknown plans get
// LITE limits; a nil usage is treated as a lone owner with no activity.
func Resolve(plan models.Plan, usage *Usage) Result {
	effective := plan
	if !models.ValidPlan(effective) {
		effective = models.PlanLite
	}
	limits := models.GetPlanLimits(effective)
	counts := usage.counts()

	return Result{
		Plan:              effective,
		AIEnabled:         limits.AIEnabled,
		CanUseAI:          limits.AIEnabled,
		CanInviteUser:     counts.Users < limits.MaxUsers,
		CanCreateProvider: counts.Providers < limits.MaxProviders,
		IsUsageHigh:       isUsageHigh(limits, counts),
		Limits:            limits,
		Usage:             counts,
	}
}

// counts applies defaults: a tenant always has at least its owner.
func (u *Usage) counts() Counts {
	c := Counts{Users: 1}
	if u == nil {
		return c
	}
	if u.Messages != nil {
		c.Messages = *u.Messages
	}
	if u.Bookings != nil {
		c.Bookings = *u.Bookings
	}
	if u.Users != nil {
		c.Users = *u.Users
	}
	if u.Providers != nil {
		c.Providers = *u.Providers
	}
	return c
}

// isUsageHigh reports whether any counter is strictly above 80% of its
// limit. Seat count only counts on tiers with more than one seat.
func isUsageHigh(limits models.PlanLimits, c Counts) bool {
	return above80(c.Messages, limits.MaxMessages) ||
		above80(c.Bookings, limits.MaxBookings) ||
		above80(c.Providers, limits.MaxProviders) ||
		(limits.MaxUsers > 1 && above80(c.Users, limits.MaxUsers))
}

// above80 is value > 0.8*limit in integer arithmetic.
func above80(value, limit int64) bool {
	return value*5 > limit*4
}

// Int64 returns a pointer to v, for building Usage literals.
func Int64(v int64) *int64 {
	return &v
}
