package models

import "strings"

// Plan represents a subscription tier.
type Plan string

const (
	PlanLite       Plan = "LITE"
	PlanPro        Plan = "PRO"
	PlanBusiness   Plan = "BUSINESS"
	PlanEnterprise Plan = "ENTERPRISE"
)

// AllPlans lists every tier in ascending order.
var AllPlans = []Plan{PlanLite, PlanPro, PlanBusiness, PlanEnterprise}

// PlanLimits defines the feature limits of a subscription tier.
type PlanLimits struct {
	AIEnabled    bool  `json:"ai_enabled" yaml:"ai_enabled"`
	MaxUsers     int64 `json:"max_users" yaml:"max_users"`
	MaxMessages  int64 `json:"max_messages" yaml:"max_messages"`
	MaxBookings  int64 `json:"max_bookings" yaml:"max_bookings"`
	MaxProviders int64 `json:"max_providers" yaml:"max_providers"`
}

// PlanLimitsMap contains the limits for each plan.
var PlanLimitsMap = map[Plan]PlanLimits{
	PlanLite: {
		AIEnabled:    false,
		MaxUsers:     1,
		MaxMessages:  500,
		MaxBookings:  50,
		MaxProviders: 1,
	},
	PlanPro: {
		AIEnabled:    false,
		MaxUsers:     5,
		MaxMessages:  2000,
		MaxBookings:  200,
		MaxProviders: 5,
	},
	PlanBusiness: {
		AIEnabled:    true,
		MaxUsers:     20,
		MaxMessages:  10000,
		MaxBookings:  1000,
		MaxProviders: 20,
	},
	PlanEnterprise: {
		AIEnabled:    true,
		MaxUsers:     9999,
		MaxMessages:  100000,
		MaxBookings:  10000,
		MaxProviders: 100,
	},
}

// GetPlanLimits returns the limits for a given plan.
func GetPlanLimits(plan Plan) PlanLimits {
	if limits, ok := PlanLimitsMap[plan]; ok {
		return limits
	}
	// Default to lite plan limits
	return PlanLimitsMap[PlanLite]
}

// PlanLevel returns the numeric level for a plan (higher = more features).
// Unknown plans rank as LITE.
func PlanLevel(plan Plan) int {
	levels := map[Plan]int{
		PlanLite:       1,
		PlanPro:        2,
		PlanBusiness:   3,
		PlanEnterprise: 4,
	}
	if level, ok := levels[plan]; ok {
		return level
	}
	return 1
}

// ValidPlan checks if a plan string is a known tier.
func ValidPlan(plan Plan) bool {
	switch plan {
	case PlanLite, PlanPro, PlanBusiness, PlanEnterprise:
		return true
	}
	return false
}

// NormalizePlan maps free-form input to a known tier, falling back to LITE.
func NormalizePlan(s string) Plan {
	p := Plan(strings.ToUpper(strings.TrimSpace(s)))
	if ValidPlan(p) {
		return p
	}
	return PlanLite
}

// NextPlan returns the tier one level above plan.
// ok is false for ENTERPRISE.
func NextPlan(plan Plan) (next Plan, ok bool) {
	level := PlanLevel(plan)
	if level >= len(AllPlans) {
		return "", false
	}
	return AllPlans[level], true
}

// LowestPlanWithAI returns the cheapest tier that includes AI features.
func LowestPlanWithAI() Plan {
	for _, p := range AllPlans {
		if PlanLimitsMap[p].AIEnabled {
			return p
		}
	}
	return PlanEnterprise
}
