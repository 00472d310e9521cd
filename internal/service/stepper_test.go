package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/feedx-service/internal/domain"
)

func TestProjectStatus(t *testing.T) {
	tests := []struct {
		status        domain.IssueStatus
		wantCurrent   int
		wantCompleted []bool
	}{
		{status: domain.IssueStatusOpen, wantCurrent: 0, wantCompleted: []bool{false, false, false}},
		{status: domain.IssueStatusSubmitted, wantCurrent: 0, wantCompleted: []bool{false, false, false}},
		{status: domain.IssueStatusInProgress, wantCurrent: 1, wantCompleted: []bool{true, false, false}},
		{status: domain.IssueStatusResolved, wantCurrent: 2, wantCompleted: []bool{true, true, false}},
		{status: domain.IssueStatusRejected, wantCurrent: 0, wantCompleted: []bool{false, false, false}},
		{status: domain.IssueStatus("archived"), wantCurrent: 0, wantCompleted: []bool{false, false, false}},
		{status: "", wantCurrent: 0, wantCompleted: []bool{false, false, false}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := ProjectStatus(tt.status)
			assert.Equal(t, tt.wantCurrent, p.CurrentStep)
			assert.Len(t, p.Steps, 3)
			for i, step := range p.Steps {
				assert.Equal(t, StepLabels[i], step.Label)
				assert.Equal(t, tt.wantCompleted[i], step.Completed, "step %d completed", i)
				assert.Equal(t, i == tt.wantCurrent, step.Current, "step %d current", i)
			}
		})
	}
}
