package events

import (
	"time"

	"github.com/spec-kit/feedx-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueEscalated     EventType = "issue_escalated"
)

// AllEventTypes lists every type a sink may want to subscribe to.
var AllEventTypes = []EventType{EventIssueCreated, EventIssueStatusChanged, EventIssueEscalated}

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	IssueID   string    `json:"issue_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Reference  string           `json:"reference,omitempty"`
	Type       domain.IssueType `json:"type"`
	Category   string           `json:"category"`
	SentTo     string           `json:"sent_to,omitempty"`
	Anonymous  bool             `json:"anonymous"`
	ProofFiles int              `json:"proof_files"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
	Message   string             `json:"message,omitempty"`
}

// IssueEscalatedPayload payload.
type IssueEscalatedPayload struct {
	Reference   string `json:"reference,omitempty"`
	Reason      string `json:"reason"`
	EscalatedTo string `json:"escalated_to,omitempty"`
	AgeHours    int    `json:"age_hours"`
}
