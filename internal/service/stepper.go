package service

import "github.com/spec-kit/feedx-service/internal/domain"

// Progress labels shown on the tracking view, in order.
var StepLabels = []string{"Submitted", "In Progress", "Resolved"}

// Step is one position on the progress stepper.
type Step struct {
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// StatusProjection maps a persisted status onto the stepper.
type StatusProjection struct {
	CurrentStep int    `json:"current_step"`
	Steps       []Step `json:"steps"`
}

// StepIndex returns the current step for status. Unknown and rejected
// statuses fall back to the first step.
func StepIndex(status domain.IssueStatus) int {
	switch status {
	case domain.IssueStatusInProgress:
		return 1
	case domain.IssueStatusResolved:
		return 2
	default:
		return 0
	}
}

// ProjectStatus builds the stepper for status.
func ProjectStatus(status domain.IssueStatus) StatusProjection {
	current := StepIndex(status)
	steps := make([]Step, len(StepLabels))
	for i, label := range StepLabels {
		steps[i] = Step{Label: label, Completed: i < current, Current: i == current}
	}
	return StatusProjection{CurrentStep: current, Steps: steps}
}
