package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/repository"
	"github.com/spec-kit/feedx-service/internal/storage"
	"github.com/spec-kit/feedx-service/internal/validation"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

// IssueService covers the student side of the issue lifecycle: submission,
// tracking and escalation.
type IssueService struct {
	issues     repository.IssueRepository
	uploader   storage.Uploader
	resolver   *storage.Resolver
	references ReferenceGenerator
	validate   *validation.Validator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      Clock
	limits     ProofLimits
	minAge     time.Duration
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo        repository.IssueRepository
	Uploader         storage.Uploader
	Resolver         *storage.Resolver
	References       ReferenceGenerator
	Validator        *validation.Validator
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Clock            Clock
	Limits           ProofLimits
	EscalationMinAge time.Duration
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := deps.Validator
	if validate == nil {
		validate = validation.New()
	}
	minAge := deps.EscalationMinAge
	if minAge <= 0 {
		minAge = DefaultEscalationAge
	}
	return &IssueService{
		issues:     deps.IssueRepo,
		uploader:   deps.Uploader,
		resolver:   deps.Resolver,
		references: deps.References,
		validate:   validate,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		clock:      deps.Clock,
		limits:     deps.Limits.withDefaults(),
		minAge:     minAge,
	}
}

// SubmitInput is a new issue, feedback or suggestion.
type SubmitInput struct {
	Type            domain.IssueType `json:"type" validate:"required,oneof=issue feedback suggestion"`
	Category        string           `json:"category" validate:"notblank"`
	SpecifyCategory string           `json:"specify_category"`
	Description     string           `json:"description" validate:"notblank"`
	SentTo          string           `json:"sent_to"`
	FacultyName     string           `json:"faculty_name"`
	Anonymous       bool             `json:"anonymous"`
	Files           []storage.File   `json:"-"`
}

// SubmitResult reports the created issue and what happened to every file.
type SubmitResult struct {
	Issue    *domain.Issue
	Rejected []FileRejection
	Uploads  []UploadOutcome
}

// Submit validates the input, uploads accepted proof files one by one and then
// creates exactly one issue with whatever uploads succeeded.
func (s *IssueService) Submit(ctx context.Context, session domain.Session, input SubmitInput) (*SubmitResult, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := s.validateSubmission(input); err != nil {
		return nil, err
	}

	result := &SubmitResult{}
	if input.Type == domain.IssueTypeIssue {
		accepted, rejected := FilterProofFiles(input.Files, 0, s.limits)
		result.Rejected = rejected
		if len(accepted) > 0 {
			result.Uploads = uploadSequentially(ctx, s.uploader, session, accepted, s.logger)
		}
	} else {
		for _, file := range input.Files {
			result.Rejected = append(result.Rejected, FileRejection{
				Filename: file.Name,
				Reason:   fmt.Sprintf("%s was not attached: proof files are only accepted for issues", file.Name),
			})
		}
	}

	issue := &domain.Issue{
		UserID:      session.UserID,
		Type:        input.Type,
		Category:    strings.TrimSpace(input.Category),
		Description: strings.TrimSpace(input.Description),
		SentTo:      strings.TrimSpace(input.SentTo),
		FacultyName: strings.TrimSpace(input.FacultyName),
		Anonymous:   input.Anonymous,
		ProofFiles:  proofURLs(result.Uploads),
	}
	if issue.Category == domain.CategoryOther {
		issue.SpecifyCategory = strings.TrimSpace(input.SpecifyCategory)
	}
	if input.Type == domain.IssueTypeIssue && s.references != nil {
		ref := s.references.Next()
		issue.IssueID = &ref
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, storeError(err, "issue")
	}
	result.Issue = issue

	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueCreated,
		IssueID: issue.ID,
		Actor:   sessionActor(session),
		Payload: events.IssueCreatedPayload{
			Reference:  issue.Reference(),
			Type:       issue.Type,
			Category:   issue.Category,
			SentTo:     issue.SentTo,
			Anonymous:  issue.Anonymous,
			ProofFiles: len(issue.ProofFiles),
		},
	})
	return result, nil
}

func (s *IssueService) validateSubmission(input SubmitInput) error {
	if err := s.validate.Struct(input); err != nil {
		return err
	}
	category := strings.TrimSpace(input.Category)
	if !input.Type.AllowsCategory(category) {
		return apperrors.NewValidationError("invalid payload", map[string]any{
			"category": fmt.Sprintf("must be one of %s", strings.Join(input.Type.CategoryOptions(), ", ")),
		})
	}
	if category == domain.CategoryOther && strings.TrimSpace(input.SpecifyCategory) == "" {
		return apperrors.NewValidationError("invalid payload", map[string]any{
			"specify_category": "required when category is Other",
		})
	}
	return nil
}

// Attachment is a resolved proof file link.
type Attachment struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// TrackedIssue is an issue as the tracking view renders it.
type TrackedIssue struct {
	Issue       *domain.Issue
	Progress    StatusProjection
	Attachments []Attachment
	Escalation  EscalationGate
}

func (s *IssueService) track(issue *domain.Issue, now time.Time) TrackedIssue {
	attachments := make([]Attachment, 0, len(issue.ProofFiles))
	for i, ref := range issue.ProofFiles {
		url := ref
		if s.resolver != nil {
			url = s.resolver.Resolve(ref)
		}
		attachments = append(attachments, Attachment{Label: fmt.Sprintf("File %d", i+1), URL: url})
	}
	return TrackedIssue{
		Issue:       issue,
		Progress:    ProjectStatus(issue.Status),
		Attachments: attachments,
		Escalation:  EvaluateEscalation(issue, now, s.minAge),
	}
}

// ListActive returns the caller's open, submitted and in-progress issues,
// newest first.
func (s *IssueService) ListActive(ctx context.Context, session domain.Session) ([]TrackedIssue, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	issues, err := s.issues.ListByUser(ctx, session.UserID, domain.ActiveStatuses)
	if err != nil {
		return nil, storeError(err, "issue")
	}
	return s.trackAll(issues), nil
}

// ListResolved returns the caller's resolved issues, most recently resolved first.
func (s *IssueService) ListResolved(ctx context.Context, session domain.Session) ([]TrackedIssue, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{
		UserID:   &session.UserID,
		Statuses: []domain.IssueStatus{domain.IssueStatusResolved},
		Order:    repository.OrderResolvedDesc,
	})
	if err != nil {
		return nil, storeError(err, "issue")
	}
	return s.trackAll(issues), nil
}

func (s *IssueService) trackAll(issues []domain.Issue) []TrackedIssue {
	now := s.clock.now()
	tracked := make([]TrackedIssue, 0, len(issues))
	for i := range issues {
		tracked = append(tracked, s.track(&issues[i], now))
	}
	return tracked
}

// Get returns one issue for its owner or for staff.
func (s *IssueService) Get(ctx context.Context, session domain.Session, issueID string) (*TrackedIssue, error) {
	issue, err := s.loadVisible(ctx, session, issueID)
	if err != nil {
		return nil, err
	}
	tracked := s.track(issue, s.clock.now())
	return &tracked, nil
}

// EscalationView evaluates the gate for one issue.
func (s *IssueService) EscalationView(ctx context.Context, session domain.Session, issueID string) (EscalationGate, error) {
	issue, err := s.loadVisible(ctx, session, issueID)
	if err != nil {
		return EscalationGate{}, err
	}
	return EvaluateEscalation(issue, s.clock.now(), s.minAge), nil
}

func (s *IssueService) loadVisible(ctx context.Context, session domain.Session, issueID string) (*domain.Issue, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, storeError(err, "issue")
	}
	if issue.UserID != session.UserID && !session.IsStaff() {
		return nil, apperrors.NewForbidden("access denied")
	}
	return issue, nil
}

// EscalateInput is the confirmation dialog payload.
type EscalateInput struct {
	Reason      string `json:"reason"`
	EscalatedTo string `json:"escalated_to"`
}

// Escalate flips an eligible issue into the escalated state. A blank reason is
// rejected before the store is consulted; the gate is then re-evaluated from
// the persisted record and the store applies the flip only if the issue is
// still unescalated and active.
func (s *IssueService) Escalate(ctx context.Context, session domain.Session, issueID string, input EscalateInput) (*TrackedIssue, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("Reason Required", map[string]any{"reason": "Reason Required"})
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, storeError(err, "issue")
	}
	if issue.UserID != session.UserID {
		return nil, apperrors.NewForbidden("only the submitter can escalate an issue")
	}

	now := s.clock.now()
	gate := EvaluateEscalation(issue, now, s.minAge)
	switch {
	case gate.State == EscalationEscalated:
		return nil, apperrors.NewConflict("issue already escalated", nil)
	case gate.Closed:
		return nil, apperrors.NewConflict("issue is closed", map[string]any{"status": issue.Status})
	case gate.State == EscalationNotEligible:
		return nil, apperrors.NewConflict("issue is not yet eligible for escalation", map[string]any{
			"hours_remaining": gate.HoursRemaining,
		})
	}

	record := repository.EscalationRecord{
		Reason:      reason,
		EscalatedTo: strings.TrimSpace(input.EscalatedTo),
		At:          now,
	}
	if err := s.issues.Escalate(ctx, issue.ID, record); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("issue already escalated", nil)
		}
		return nil, storeError(err, "issue")
	}

	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueEscalated,
		IssueID: issue.ID,
		Actor:   sessionActor(session),
		Payload: events.IssueEscalatedPayload{
			Reference:   issue.Reference(),
			Reason:      record.Reason,
			EscalatedTo: record.EscalatedTo,
			AgeHours:    int(now.Sub(issue.CreatedAt).Hours()),
		},
	})

	// The flip is committed; a failed re-read falls back to the loaded record.
	updated, err := s.issues.GetByID(ctx, issue.ID)
	if err != nil {
		s.logger.Warn("re-reading escalated issue",
			zap.String("issue_id", issue.ID),
			zap.Error(err))
		updated = withEscalation(issue, record)
	}

	tracked := s.track(updated, now)
	return &tracked, nil
}

func withEscalation(issue *domain.Issue, record repository.EscalationRecord) *domain.Issue {
	escalated := *issue
	escalated.Escalated = true
	escalated.EscalationReason = &record.Reason
	if record.EscalatedTo != "" {
		to := record.EscalatedTo
		escalated.EscalatedTo = &to
	}
	at := record.At
	escalated.EscalatedAt = &at
	escalated.UpdatedAt = at
	return &escalated
}
