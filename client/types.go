package client

import (
	"encoding/json"
	"time"
)

// Limits are the caps of a plan tier.
type Limits struct {
	AIEnabled    bool  `json:"ai_enabled"`
	MaxUsers     int64 `json:"max_users"`
	MaxMessages  int64 `json:"max_messages"`
	MaxBookings  int64 `json:"max_bookings"`
	MaxProviders int64 `json:"max_providers"`
}

// Usage are the tenant's counters for the current period.
type Usage struct {
	Messages  int64 `json:"messages"`
	Bookings  int64 `json:"bookings"`
	Users     int64 `json:"users"`
	Providers int64 `json:"providers"`
}

// UsageMetric is one metered counter for one billing period.
type UsageMetric struct {
	Metric      string    `json:"metric"`
	Value       int64     `json:"value"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Entitlements is what the tenant's plan allows given its usage.
type Entitlements struct {
	Plan              string `json:"plan"`
	AIEnabled         bool   `json:"ai_enabled"`
	CanUseAI          bool   `json:"can_use_ai"`
	CanInviteUser     bool   `json:"can_invite_user"`
	CanCreateProvider bool   `json:"can_create_provider"`
	IsUsageHigh       bool   `json:"is_usage_high"`
	Limits            Limits `json:"limits"`
	Usage             Usage  `json:"usage"`
	SuggestedPlan     string `json:"suggested_plan,omitempty"`
}

// Decision is the outcome of a feature gate check.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Current   string `json:"current"`
	Required  string `json:"required"`
	Mode      string `json:"mode"`
	UpgradeTo string `json:"upgrade_to,omitempty"`
}

// ActionCheck confirms that the tenant may perform an action.
type ActionCheck struct {
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
}

// Workflow is a stored flow. Steps and Metadata are JSON documents.
type Workflow struct {
	ID        string    `json:"workflow_id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Steps     string    `json:"steps"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position is an editor coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is an editor graph vertex. Data is passed through untouched.
type Node struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Edge is an editor graph connection.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Graph is the editor view of a workflow.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// SaveResult is returned by graph and step saves. Warnings name
// transitions that point at missing steps.
type SaveResult struct {
	Workflow *Workflow `json:"workflow"`
	Graph    Graph     `json:"graph"`
	Warnings []string  `json:"-"`
}
