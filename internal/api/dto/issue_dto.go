package dto

import (
	"time"

	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/service"
)

// SubmitIssueRequest carries the form fields of a submission. Proof files
// arrive separately as multipart parts named "files".
type SubmitIssueRequest struct {
	Type            domain.IssueType `json:"type" form:"type"`
	Category        string           `json:"category" form:"category"`
	SpecifyCategory string           `json:"specify_category" form:"specify_category"`
	Description     string           `json:"description" form:"description"`
	SentTo          string           `json:"sent_to" form:"sent_to"`
	FacultyName     string           `json:"faculty_name" form:"faculty_name"`
	Anonymous       bool             `json:"anonymous" form:"anonymous"`
}

// EscalateRequest is the escalation confirmation payload.
type EscalateRequest struct {
	Reason      string `json:"reason"`
	EscalatedTo string `json:"escalated_to"`
}

// RespondRequest is a faculty reply.
type RespondRequest struct {
	Message string             `json:"message"`
	Status  domain.IssueStatus `json:"status"`
}

// IssueResponse is the wire form of an issue.
type IssueResponse struct {
	ID                string             `json:"id"`
	IssueID           *string            `json:"issue_id"`
	UserID            string             `json:"user_id,omitempty"`
	Type              domain.IssueType   `json:"type"`
	Category          string             `json:"category"`
	SpecifyCategory   string             `json:"specify_category,omitempty"`
	Description       string             `json:"description"`
	SentTo            string             `json:"sent_to"`
	FacultyName       string             `json:"faculty_name,omitempty"`
	Anonymous         bool               `json:"anonymous"`
	ProofFiles        []string           `json:"proof_files"`
	Status            domain.IssueStatus `json:"status"`
	Escalated         bool               `json:"escalated"`
	EscalatedTo       *string            `json:"escalated_to"`
	EscalationReason  *string            `json:"escalation_reason"`
	EscalatedAt       *time.Time         `json:"escalated_at"`
	ResolutionMessage *string            `json:"resolution_message"`
	ResolvedAt        *time.Time         `json:"resolved_at"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TrackedIssueResponse adds the stepper, resolved links and gate to an issue.
type TrackedIssueResponse struct {
	IssueResponse
	Progress    service.StatusProjection `json:"progress"`
	Attachments []service.Attachment     `json:"attachments"`
	Escalation  service.EscalationGate   `json:"escalation"`
}

// ReviewedIssueResponse is an issue in the faculty queue.
type ReviewedIssueResponse struct {
	IssueResponse
	Submitter *service.Submitter `json:"submitter"`
}

// SubmitResponse reports the created issue with per-file outcomes.
type SubmitResponse struct {
	Issue    IssueResponse           `json:"issue"`
	Rejected []service.FileRejection `json:"rejected_files"`
	Uploads  []service.UploadOutcome `json:"uploads"`
}

// NewIssueResponse maps a domain issue. The owner id is left out for
// anonymous submissions.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	resp := IssueResponse{
		ID:                issue.ID,
		IssueID:           issue.IssueID,
		Type:              issue.Type,
		Category:          issue.Category,
		SpecifyCategory:   issue.SpecifyCategory,
		Description:       issue.Description,
		SentTo:            issue.SentTo,
		FacultyName:       issue.FacultyName,
		Anonymous:         issue.Anonymous,
		ProofFiles:        issue.ProofFiles,
		Status:            issue.Status,
		Escalated:         issue.Escalated,
		EscalatedTo:       issue.EscalatedTo,
		EscalationReason:  issue.EscalationReason,
		EscalatedAt:       issue.EscalatedAt,
		ResolutionMessage: issue.ResolutionMessage,
		ResolvedAt:        issue.ResolvedAt,
		CreatedAt:         issue.CreatedAt,
		UpdatedAt:         issue.UpdatedAt,
	}
	if !issue.Anonymous {
		resp.UserID = issue.UserID
	}
	if resp.ProofFiles == nil {
		resp.ProofFiles = []string{}
	}
	return resp
}

// NewTrackedIssueResponse maps a tracking view item.
func NewTrackedIssueResponse(tracked service.TrackedIssue) TrackedIssueResponse {
	return TrackedIssueResponse{
		IssueResponse: NewIssueResponse(tracked.Issue),
		Progress:      tracked.Progress,
		Attachments:   tracked.Attachments,
		Escalation:    tracked.Escalation,
	}
}

// NewTrackedIssueList maps a tracking list, never returning null.
func NewTrackedIssueList(tracked []service.TrackedIssue) []TrackedIssueResponse {
	items := make([]TrackedIssueResponse, 0, len(tracked))
	for _, t := range tracked {
		items = append(items, NewTrackedIssueResponse(t))
	}
	return items
}

// NewReviewedIssueList maps the faculty queue.
func NewReviewedIssueList(reviewed []service.ReviewedIssue) []ReviewedIssueResponse {
	items := make([]ReviewedIssueResponse, 0, len(reviewed))
	for _, r := range reviewed {
		items = append(items, ReviewedIssueResponse{
			IssueResponse: NewIssueResponse(r.Issue),
			Submitter:     r.Submitter,
		})
	}
	return items
}

// NewSubmitResponse maps a submission result.
func NewSubmitResponse(result *service.SubmitResult) SubmitResponse {
	resp := SubmitResponse{
		Issue:    NewIssueResponse(result.Issue),
		Rejected: result.Rejected,
		Uploads:  result.Uploads,
	}
	if resp.Rejected == nil {
		resp.Rejected = []service.FileRejection{}
	}
	if resp.Uploads == nil {
		resp.Uploads = []service.UploadOutcome{}
	}
	return resp
}
