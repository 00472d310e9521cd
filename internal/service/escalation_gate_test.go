package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/feedx-service/internal/domain"
)

func TestEvaluateEscalation_TimeGate(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	issue := &domain.Issue{Status: domain.IssueStatusOpen, CreatedAt: created}

	tests := []struct {
		name      string
		elapsed   time.Duration
		wantState EscalationState
		wantHours int
	}{
		{name: "just created", elapsed: 0, wantState: EscalationNotEligible, wantHours: 48},
		{name: "clock behind creation", elapsed: -time.Hour, wantState: EscalationNotEligible, wantHours: 48},
		{name: "one minute in", elapsed: time.Minute, wantState: EscalationNotEligible, wantHours: 48},
		{name: "one hour in", elapsed: time.Hour, wantState: EscalationNotEligible, wantHours: 47},
		{name: "one second before", elapsed: 48*time.Hour - time.Second, wantState: EscalationNotEligible, wantHours: 1},
		{name: "exactly 48h", elapsed: 48 * time.Hour, wantState: EscalationEligible},
		{name: "one second after", elapsed: 48*time.Hour + time.Second, wantState: EscalationEligible},
		{name: "49h", elapsed: 49 * time.Hour, wantState: EscalationEligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := EvaluateEscalation(issue, created.Add(tt.elapsed), 48*time.Hour)
			assert.Equal(t, tt.wantState, gate.State)
			assert.Equal(t, tt.wantHours, gate.HoursRemaining)
			assert.False(t, gate.Closed)
		})
	}
}

func TestEvaluateEscalation_States(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	late := created.Add(100 * time.Hour)

	for _, status := range []domain.IssueStatus{domain.IssueStatusOpen, domain.IssueStatusSubmitted, domain.IssueStatusInProgress} {
		gate := EvaluateEscalation(&domain.Issue{Status: status, CreatedAt: created}, late, 0)
		assert.Equal(t, EscalationEligible, gate.State, status)
	}

	for _, status := range []domain.IssueStatus{domain.IssueStatusResolved, domain.IssueStatusRejected} {
		gate := EvaluateEscalation(&domain.Issue{Status: status, CreatedAt: created}, late, 0)
		assert.Equal(t, EscalationNotEligible, gate.State, status)
		assert.True(t, gate.Closed, status)
		assert.Zero(t, gate.HoursRemaining, status)
	}

	escalated := &domain.Issue{Status: domain.IssueStatusResolved, CreatedAt: created, Escalated: true}
	assert.Equal(t, EscalationEscalated, EvaluateEscalation(escalated, late, 0).State)
	assert.Equal(t, EscalationEscalated, EvaluateEscalation(escalated, created, 0).State)
}

func TestEvaluateEscalation_EligibleAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	gate := EvaluateEscalation(&domain.Issue{Status: domain.IssueStatusOpen, CreatedAt: created}, created, 2*time.Hour)
	if assert.NotNil(t, gate.EligibleAt) {
		assert.Equal(t, created.Add(2*time.Hour), *gate.EligibleAt)
	}
	assert.Equal(t, 2, gate.HoursRemaining)
}
