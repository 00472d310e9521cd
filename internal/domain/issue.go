package domain

import "time"

// IssueType distinguishes issues from feedback and suggestions. Fixed at creation.
type IssueType string

const (
	IssueTypeIssue      IssueType = "issue"
	IssueTypeFeedback   IssueType = "feedback"
	IssueTypeSuggestion IssueType = "suggestion"
)

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusSubmitted  IssueStatus = "submitted"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusRejected   IssueStatus = "rejected"
)

// CategoryOther requires a free-text specify_category.
const CategoryOther = "Other"

// ActiveStatuses are the statuses shown on the tracking view.
var ActiveStatuses = []IssueStatus{IssueStatusOpen, IssueStatusSubmitted, IssueStatusInProgress}

var categoryOptions = map[IssueType][]string{
	IssueTypeIssue:      {"Academic", "Hostel", "Infrastructure", "Library", CategoryOther},
	IssueTypeFeedback:   {"Teaching", "Facilities", "Administration", "Events", CategoryOther},
	IssueTypeSuggestion: {"Infrastructure", "Academic Program", "Student Activities", "Technology", CategoryOther},
}

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	_, ok := categoryOptions[t]
	return ok
}

// CategoryOptions returns the selectable categories for t.
func (t IssueType) CategoryOptions() []string {
	opts := categoryOptions[t]
	out := make([]string, len(opts))
	copy(out, opts)
	return out
}

// AllowsCategory reports whether category belongs to the option list of t.
func (t IssueType) AllowsCategory(category string) bool {
	for _, opt := range categoryOptions[t] {
		if opt == category {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the five known statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusSubmitted, IssueStatusInProgress, IssueStatusResolved, IssueStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further progress is expected.
func (s IssueStatus) Terminal() bool {
	return s == IssueStatusResolved || s == IssueStatusRejected
}

// Active reports whether s is one of ActiveStatuses.
func (s IssueStatus) Active() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// Issue is the aggregate for student submissions.
type Issue struct {
	ID                string
	IssueID           *string
	UserID            string
	Type              IssueType
	Category          string
	SpecifyCategory   string
	Description       string
	SentTo            string
	FacultyName       string
	Anonymous         bool
	ProofFiles        []string
	Status            IssueStatus
	Escalated         bool
	EscalatedTo       *string
	EscalationReason  *string
	EscalatedAt       *time.Time
	ResolutionMessage *string
	ResolvedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Reference returns the human readable code, or "" for feedback and suggestions.
func (i *Issue) Reference() string {
	if i.IssueID == nil {
		return ""
	}
	return *i.IssueID
}
