package models

import (
	"time"

	"github.com/google/uuid"
)

// MetricType represents types of usage metrics.
type MetricType string

const (
	MetricTypeMessages MetricType = "messages"
	MetricTypeBookings MetricType = "bookings"
)

// UsageMetric represents a metered counter for one billing period.
type UsageMetric struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TenantID    uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Metric      MetricType `json:"metric" db:"metric"`
	Value       int64      `json:"value" db:"value"`
	PeriodStart time.Time  `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time  `json:"period_end" db:"period_end"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
