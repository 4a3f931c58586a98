// Package models defines the data models for the Hola Lucia control plane.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a business account using the booking product.
type Tenant struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	Slug                 string    `json:"slug" db:"slug"`
	Plan                 Plan      `json:"plan" db:"plan"`
	StripeCustomerID     *string   `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	StripeSubscriptionID *string   `json:"stripe_subscription_id,omitempty" db:"stripe_subscription_id"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// TenantMember represents a user's seat in a tenant.
type TenantMember struct {
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	Role     Role      `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// Role represents a user's role within a tenant.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)
