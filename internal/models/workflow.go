package models

import (
	"time"

	"github.com/google/uuid"
)

// Workflow is a persisted conversational flow.
// Steps and Metadata hold JSON documents exactly as stored.
type Workflow struct {
	ID        string    `json:"workflow_id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Steps     string    `json:"steps" db:"steps"`
	Metadata  string    `json:"metadata" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
