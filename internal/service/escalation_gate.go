package service

import (
	"math"
	"time"

	"github.com/spec-kit/feedx-service/internal/domain"
)

// DefaultEscalationAge is how long an issue must wait before it can be escalated.
const DefaultEscalationAge = 48 * time.Hour

// EscalationState is the gate position of a single issue.
type EscalationState string

const (
	EscalationNotEligible EscalationState = "not_eligible"
	EscalationEligible    EscalationState = "eligible"
	EscalationEscalated   EscalationState = "escalated"
)

// EscalationGate is the evaluated gate for one issue at one instant.
type EscalationGate struct {
	State EscalationState `json:"state"`
	// HoursRemaining is ceil(minAge - elapsed) in hours; set only while the
	// issue is waiting out the dwell time.
	HoursRemaining int `json:"hours_remaining,omitempty"`
	// Closed marks issues that can no longer be escalated because they
	// reached a terminal status.
	Closed     bool       `json:"closed,omitempty"`
	EligibleAt *time.Time `json:"eligible_at,omitempty"`
}

// EvaluateEscalation is a pure function of the persisted issue and now.
// Escalated wins over everything; terminal statuses are never eligible.
func EvaluateEscalation(issue *domain.Issue, now time.Time, minAge time.Duration) EscalationGate {
	if issue.Escalated {
		return EscalationGate{State: EscalationEscalated}
	}
	if !issue.Status.Active() {
		return EscalationGate{State: EscalationNotEligible, Closed: true}
	}
	if minAge <= 0 {
		minAge = DefaultEscalationAge
	}

	elapsed := now.Sub(issue.CreatedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= minAge {
		return EscalationGate{State: EscalationEligible}
	}

	eligibleAt := issue.CreatedAt.Add(minAge)
	return EscalationGate{
		State:          EscalationNotEligible,
		HoursRemaining: int(math.Ceil((minAge - elapsed).Hours())),
		EligibleAt:     &eligibleAt,
	}
}
