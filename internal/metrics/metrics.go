// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
)

var (
	entitlementChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holalucia_entitlement_checks_total",
			Help: "Feature gate checks by effective plan and outcome",
		},
		[]string{"plan", "allowed"},
	)

	workflowSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holalucia_workflow_saves_total",
			Help: "Workflow saves by result",
		},
		[]string{"result"},
	)

	danglingTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holalucia_dangling_transitions_total",
			Help: "Transitions saved that point at steps which do not exist",
		},
	)
)

// Save results.
const (
	SaveOK       = "ok"
	SaveWarning  = "warning"
	SaveRejected = "rejected"
	SaveError    = "error"
)

// RecordEntitlementCheck counts one gate decision.
func RecordEntitlementCheck(plan models.Plan, allowed bool) {
	if !models.ValidPlan(plan) {
		plan = models.PlanLite
	}
	entitlementChecksTotal.WithLabelValues(string(plan), strconv.FormatBool(allowed)).Inc()
}

// RecordWorkflowSave counts one save attempt.
func RecordWorkflowSave(result string) {
	workflowSavesTotal.WithLabelValues(result).Inc()
}

// RecordDanglingTransitions adds n to the dangling transition counter.
func RecordDanglingTransitions(n int) {
	if n > 0 {
		danglingTransitionsTotal.Add(float64(n))
	}
}
